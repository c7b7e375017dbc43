package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/shift/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent saves.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewULID generates a new ULID string, used as creation-time-ordered IDs
// for tasks and chat messages.
func NewULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- User records ---

func (s *SQLiteStore) GetUserRecord(ctx context.Context, id string) (*models.UserRecord, error) {
	u := &models.UserRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, score, streak, last_task_completion_date, last_decay_applied_date, created_at, updated_at
		FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.DisplayName, &u.Score, &u.Streak, &u.LastTaskCompletionDate, &u.LastDecayAppliedDate, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user record: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) SaveProgress(ctx context.Context, id string, p Progress) error {
	if id == "" {
		return fmt.Errorf("save progress: empty user id")
	}
	now := time.Now().UTC()

	// Upsert-merge: only the progress columns are written on conflict, and
	// an empty display name keeps whatever was stored before.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, score, streak, last_task_completion_date, last_decay_applied_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name = '' THEN users.display_name ELSE excluded.display_name END,
			score = excluded.score,
			streak = excluded.streak,
			last_task_completion_date = excluded.last_task_completion_date,
			last_decay_applied_date = excluded.last_decay_applied_date,
			updated_at = excluded.updated_at`,
		id, p.DisplayName, p.Score, p.Streak, p.LastTaskCompletionDate, p.LastDecayAppliedDate, now, now,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TopUsers(ctx context.Context, limit int) ([]*models.UserRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, score, streak, last_task_completion_date, last_decay_applied_date, created_at, updated_at
		FROM users ORDER BY score DESC, id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list top users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserRecord
	for rows.Next() {
		u := &models.UserRecord{}
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Score, &u.Streak, &u.LastTaskCompletionDate, &u.LastDecayAppliedDate, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user record: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
