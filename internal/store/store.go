package store

import (
	"context"

	"github.com/joescharf/shift/internal/models"
)

// Progress is the subset of a user record the simulator mutates during a
// shift. Saves merge these fields into the stored record without touching
// anything else.
type Progress struct {
	DisplayName            string
	Score                  float64
	Streak                 int
	LastTaskCompletionDate string
	LastDecayAppliedDate   string
}

// Store defines the persistence interface for shift.
type Store interface {
	// GetUserRecord returns the record for a user, or (nil, nil) if none
	// exists yet.
	GetUserRecord(ctx context.Context, id string) (*models.UserRecord, error)

	// SaveProgress upserts the progress fields for a user. Creates the
	// record on first save; otherwise merges, leaving unrelated columns
	// untouched. An empty DisplayName never overwrites a stored one.
	SaveProgress(ctx context.Context, id string, p Progress) error

	// TopUsers returns up to limit records ordered by score descending.
	TopUsers(ctx context.Context, limit int) ([]*models.UserRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
