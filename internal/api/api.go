// Package api exposes the shift session engine over REST for the browser
// frontend. One session is active per server at a time.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joescharf/shift/internal/level"
	"github.com/joescharf/shift/internal/llm"
	"github.com/joescharf/shift/internal/ocr"
	"github.com/joescharf/shift/internal/output"
	"github.com/joescharf/shift/internal/record"
	"github.com/joescharf/shift/internal/sim"
	"github.com/joescharf/shift/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store     store.Store
	llm       llm.Completer
	extractor ocr.Extractor

	mu     sync.Mutex
	engine *sim.Engine
	rec    *record.Reconciler
}

// NewServer creates a new API server. The store may be nil (anonymous play,
// no leaderboard); the extractor may be nil (verification disabled).
func NewServer(s store.Store, completer llm.Completer, extractor ocr.Extractor) *Server {
	return &Server{
		store:     s,
		llm:       completer,
		extractor: extractor,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/session", s.clockIn)
	mux.HandleFunc("GET /api/v1/session", s.getSession)
	mux.HandleFunc("POST /api/v1/session/pause", s.pauseSession)
	mux.HandleFunc("POST /api/v1/session/clockout", s.clockOut)

	mux.HandleFunc("POST /api/v1/session/tasks", s.addTask)
	mux.HandleFunc("POST /api/v1/session/tasks/{id}/complete", s.completeTask)
	mux.HandleFunc("POST /api/v1/session/tasks/{id}/bypass", s.bypassTask)
	mux.HandleFunc("DELETE /api/v1/session/tasks/{id}", s.deleteTask)
	mux.HandleFunc("POST /api/v1/session/tasks/{id}/verify", s.verifyTask)

	mux.HandleFunc("GET /api/v1/leaderboard", s.leaderboard)
	mux.HandleFunc("GET /api/v1/profile/{id}", s.profile)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionView decorates an engine snapshot with the derived career level.
type sessionView struct {
	sim.Snapshot
	Level string `json:"level"`
}

func viewOf(snap sim.Snapshot) sessionView {
	return sessionView{Snapshot: snap, Level: level.ForScore(snap.Score).Title}
}

// currentEngine returns the live engine or nil.
func (s *Server) currentEngine() *sim.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// --- Session lifecycle ---

type clockInRequest struct {
	UserID          string `json:"user_id"`
	EmployeeName    string `json:"employee_name"`
	Goal            string `json:"goal"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (s *Server) clockIn(w http.ResponseWriter, r *http.Request) {
	var req clockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.EmployeeName == "" || req.Goal == "" || req.DurationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "employee_name, goal, and a positive duration_minutes are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil && !s.engine.Ended() {
		writeError(w, http.StatusConflict, "a session is already active; clock out first")
		return
	}

	// Score and streak persist only with an identity; anonymous shifts
	// run purely in memory.
	var rec *record.Reconciler
	var loaded record.Loaded
	if req.UserID != "" && s.store != nil {
		rec = record.New(s.store, req.UserID, req.EmployeeName)
		var err error
		loaded, err = rec.Load(r.Context())
		if err != nil {
			// Non-fatal: play on with defaults, the next save retries.
			slog.Warn("load user record", "user", req.UserID, "error", err)
			loaded = record.Loaded{}
		}
	}

	cfg := sim.Config{
		EmployeeName: req.EmployeeName,
		Goal:         req.Goal,
		Duration:     time.Duration(req.DurationMinutes) * time.Minute,
	}

	var engineRec sim.Recorder
	if rec != nil {
		engineRec = rec
	}
	engine := sim.New(cfg, s.llm, engineRec)
	engine.Restore(loaded.Score, loaded.Streak, loaded.LastTaskCompletionDate)
	// The session outlives this request; its timers run on the background
	// context until expiry or clock-out.
	engine.Start(context.Background())

	s.engine = engine
	s.rec = rec

	writeJSON(w, http.StatusCreated, viewOf(engine.Snapshot()))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	engine := s.currentEngine()
	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(engine.Snapshot()))
}

func (s *Server) pauseSession(w http.ResponseWriter, r *http.Request) {
	engine := s.currentEngine()
	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}
	paused := engine.TogglePause()
	writeJSON(w, http.StatusOK, map[string]any{"paused": paused})
}

func (s *Server) clockOut(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	engine := s.engine
	rec := s.rec
	s.mu.Unlock()

	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}

	engine.ClockOut()
	if rec != nil {
		if err := rec.Flush(r.Context()); err != nil {
			slog.Warn("flush user record", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, viewOf(engine.Snapshot()))
}

// --- Tasks ---

type addTaskRequest struct {
	Text       string `json:"text"`
	Difficulty int    `json:"difficulty"`
}

func (s *Server) addTask(w http.ResponseWriter, r *http.Request) {
	engine := s.currentEngine()
	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}

	var req addTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	task := engine.AddCustomTask(req.Text, req.Difficulty)
	if task == nil {
		writeError(w, http.StatusBadRequest, "task text is required")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	engine := s.currentEngine()
	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}
	engine.CompleteTask(r.PathValue("id"), false)
	writeJSON(w, http.StatusOK, viewOf(engine.Snapshot()))
}

func (s *Server) bypassTask(w http.ResponseWriter, r *http.Request) {
	engine := s.currentEngine()
	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}
	engine.BypassTask(r.PathValue("id"))
	writeJSON(w, http.StatusOK, viewOf(engine.Snapshot()))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	engine := s.currentEngine()
	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}
	engine.DeleteTask(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// verifyTask accepts a multipart "proof" image, runs OCR, and asks the
// manager AI to judge it. Rejection keeps the task open so the client can
// retry with different proof.
func (s *Server) verifyTask(w http.ResponseWriter, r *http.Request) {
	engine := s.currentEngine()
	if engine == nil {
		writeError(w, http.StatusNotFound, "no session; clock in first")
		return
	}
	if s.extractor == nil {
		writeError(w, http.StatusNotImplemented, "proof verification is not configured")
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'proof' is required")
		return
	}
	defer file.Close()

	if !ocr.IsImagePath(header.Filename) {
		writeError(w, http.StatusBadRequest, "please upload an image file")
		return
	}

	tmpPath, err := saveUpload(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("store upload: %v", err))
		return
	}
	defer os.Remove(tmpPath)

	text, err := s.extractor.Extract(r.Context(), tmpPath, nil)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := engine.VerifyTask(r.PathValue("id"), text); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(engine.Snapshot()))
}

// saveUpload writes an uploaded file to a temp path preserving its extension
// so the extractor can validate the format.
func saveUpload(file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp("", "shift-proof-*"+ext)
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// --- Leaderboard & profile ---

type leaderboardEntry struct {
	Rank        int     `json:"rank"`
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	Level       string  `json:"level"`
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	users, err := s.store.TopUsers(r.Context(), 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]leaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, leaderboardEntry{
			Rank:        i + 1,
			ID:          u.ID,
			DisplayName: output.Truncate(u.DisplayName, 24),
			Score:       u.Score,
			Level:       level.ForScore(u.Score).Title,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}

	u, err := s.store.GetUserRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "no record for this user")
		return
	}

	l := level.ForScore(u.Score)
	writeJSON(w, http.StatusOK, map[string]any{
		"record": u,
		"level":  map[string]any{"title": l.Title, "tier": l.Tier},
	})
}
