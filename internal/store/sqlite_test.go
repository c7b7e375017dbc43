package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestGetUserRecord_MissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	u, err := s.GetUserRecord(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSaveProgress_CreatesAndMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// First save creates the record
	err := s.SaveProgress(ctx, "ana", Progress{
		DisplayName:            "Ana",
		Score:                  480,
		Streak:                 2,
		LastTaskCompletionDate: "2026-08-28",
		LastDecayAppliedDate:   "2026-08-28",
	})
	require.NoError(t, err)

	u, err := s.GetUserRecord(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ana", u.DisplayName)
	assert.Equal(t, 480.0, u.Score)
	assert.Equal(t, 2, u.Streak)
	assert.False(t, u.CreatedAt.IsZero())

	// Second save merges; empty display name keeps the stored one
	err = s.SaveProgress(ctx, "ana", Progress{
		Score:                  960,
		Streak:                 3,
		LastTaskCompletionDate: "2026-08-29",
		LastDecayAppliedDate:   "2026-08-29",
	})
	require.NoError(t, err)

	u, err = s.GetUserRecord(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.DisplayName, "empty display name must not clobber")
	assert.Equal(t, 960.0, u.Score)
	assert.Equal(t, 3, u.Streak)
	assert.Equal(t, "2026-08-29", u.LastTaskCompletionDate)
}

func TestSaveProgress_EmptyID(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveProgress(context.Background(), "", Progress{})
	assert.Error(t, err)
}

func TestTopUsers_OrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, u := range []struct {
		id    string
		score float64
	}{
		{"low", 100},
		{"high", 50000},
		{"mid", 3000},
		{"tied", 3000},
	} {
		require.NoError(t, s.SaveProgress(ctx, u.id, Progress{DisplayName: u.id, Score: u.score}))
	}

	users, err := s.TopUsers(ctx, 3)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "high", users[0].ID)
	// Ties broken by a stable order (id asc)
	assert.Equal(t, "mid", users[1].ID)
	assert.Equal(t, "tied", users[2].ID)

	// Default limit when non-positive
	users, err = s.TopUsers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func TestNewULID_Ordered(t *testing.T) {
	a := NewULID()
	b := NewULID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 26)
}
