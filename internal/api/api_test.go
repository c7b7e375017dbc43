package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/shift/internal/sim"
	"github.com/joescharf/shift/internal/store"
)

// fakeCompleter returns a fixed reply for every prompt.
type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return "Reconcile the quarterly numbers2", nil
	}
	return f.reply, nil
}

func (f *fakeCompleter) setReply(reply string) {
	f.mu.Lock()
	f.reply = reply
	f.mu.Unlock()
}

// fakeExtractor returns canned OCR text.
type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, imagePath string, progress func(int)) (string, error) {
	if progress != nil {
		progress(100)
	}
	return f.text, f.err
}

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore, *fakeCompleter, *fakeExtractor) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	fc := &fakeCompleter{}
	fe := &fakeExtractor{text: "task complete, deployed at 14:02"}
	return NewServer(st, fc, fe), st, fc, fe
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func clockIn(t *testing.T, h http.Handler) sim.Snapshot {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/v1/session", map[string]any{
		"user_id":          "ana",
		"employee_name":    "Ana",
		"goal":             "Ship v2",
		"duration_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

// addTask posts a custom task and returns its ID.
func addTask(t *testing.T, h http.Handler, text string, difficulty int) string {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/v1/session/tasks", map[string]any{
		"text": text, "difficulty": difficulty,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	require.NotEmpty(t, task.ID)
	return task.ID
}

func TestClockIn(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Router()

	snap := clockIn(t, h)
	assert.Equal(t, "Ana", snap.EmployeeName)
	assert.Equal(t, "running", snap.State)
	assert.Equal(t, 30*60, snap.TimeLeftSeconds)
	require.NotEmpty(t, snap.Messages)
	assert.Contains(t, snap.Messages[0].Text, "Ship v2")
}

func TestClockIn_Validation(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Router()

	rec := doJSON(t, h, "POST", "/api/v1/session", map[string]any{"goal": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "POST", "/api/v1/session", map[string]any{
		"employee_name": "Ana", "goal": "x", "duration_minutes": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClockIn_ConflictWhileActive(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Router()

	clockIn(t, h)
	rec := doJSON(t, h, "POST", "/api/v1/session", map[string]any{
		"employee_name": "Bob", "goal": "Take over the desk", "duration_minutes": 5,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetSession_NoneYet(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), "GET", "/api/v1/session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPauseToggle(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	rec := doJSON(t, h, "POST", "/api/v1/session/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paused":true`)

	rec = doJSON(t, h, "POST", "/api/v1/session/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paused":false`)
}

func TestTaskLifecycle(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	taskID := addTask(t, h, "Prepare the board deck", 4)

	// Complete it: 4 * 100 * 1 * (1 + 0) = 400
	rec := doJSON(t, h, "POST", "/api/v1/session/tasks/"+taskID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 400.0, snap.Score)
	assert.Equal(t, 1, snap.TasksCompleted)

	// Clock out flushes the record immediately
	rec = doJSON(t, h, "POST", "/api/v1/session/clockout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := st.GetUserRecord(context.Background(), "ana")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 400.0, u.Score)
	assert.Equal(t, 1, u.Streak)
}

func TestBypassTask_HalfCredit(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	taskID := addTask(t, h, "Prepare the board deck", 4)

	rec := doJSON(t, h, "POST", "/api/v1/session/tasks/"+taskID+"/bypass", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 200.0, snap.Score)
}

func TestDeleteTask(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	taskID := addTask(t, h, "Busywork", 1)

	rec := doJSON(t, h, "DELETE", "/api/v1/session/tasks/"+taskID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func postProof(t *testing.T, h http.Handler, taskID, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("proof", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/session/tasks/"+taskID+"/verify", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVerifyTask_Approved(t *testing.T) {
	s, _, fc, _ := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	taskID := addTask(t, h, "Deploy the service", 3)
	fc.setReply(`{"approved": true, "message": "Checks out."}`)

	resp := postProof(t, h, taskID, "proof.png")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.Equal(t, 300.0, snap.Score)
}

func TestVerifyTask_Rejected(t *testing.T) {
	s, _, fc, _ := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	taskID := addTask(t, h, "Deploy the service", 3)
	fc.setReply(`{"approved": false, "message": "Unrelated screenshot."}`)

	resp := postProof(t, h, taskID, "proof.png")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "Unrelated screenshot")
}

func TestVerifyTask_NonImageRejected(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	taskID := addTask(t, h, "Deploy the service", 3)

	resp := postProof(t, h, taskID, "notes.txt")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestVerifyTask_ExtractionFailure(t *testing.T) {
	s, _, _, fe := newTestServer(t)
	h := s.Router()
	clockIn(t, h)

	taskID := addTask(t, h, "Deploy the service", 3)
	fe.err = fmt.Errorf("no text could be found in the image")

	resp := postProof(t, h, taskID, "proof.png")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "no text could be found")
}

func TestLeaderboard(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	ctx := context.Background()

	for i, u := range []struct {
		id    string
		score float64
	}{
		{"top", 52000},
		{"mid", 4000},
		{"low", 100},
	} {
		require.NoError(t, st.SaveProgress(ctx, u.id, store.Progress{
			DisplayName: fmt.Sprintf("Player %d", i),
			Score:       u.score,
		}))
	}

	rec := doJSON(t, s.Router(), "GET", "/api/v1/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []leaderboardEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "top", entries[0].ID)
	assert.Equal(t, "Executive", entries[0].Level)
	assert.Equal(t, "Mid-Level", entries[1].Level)
}

func TestProfile(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	require.NoError(t, st.SaveProgress(context.Background(), "ana", store.Progress{
		DisplayName: "Ana", Score: 7500, Streak: 3,
	}))

	rec := doJSON(t, s.Router(), "GET", "/api/v1/profile/ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Senior")

	rec = doJSON(t, s.Router(), "GET", "/api/v1/profile/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	req := httptest.NewRequest("OPTIONS", "/api/v1/session", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
