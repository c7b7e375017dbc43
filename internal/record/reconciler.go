// Package record reconciles in-memory session progress with the persisted
// per-user record: it loads the record once per identity, applies idle-day
// score decay at load time, and saves mutations back on a trailing debounce.
package record

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/shift/internal/models"
	"github.com/joescharf/shift/internal/store"
)

// DecayPerDay is the score lost per whole idle day.
const DecayPerDay = 500

// DefaultDebounce is how long mutations are allowed to settle before a save.
const DefaultDebounce = time.Second

// Loaded is the session-relevant slice of a persisted record after decay.
type Loaded struct {
	Score                  float64
	Streak                 int
	LastTaskCompletionDate string
}

// Reconciler mediates between a shift session and the user's stored record.
type Reconciler struct {
	store       store.Store
	userID      string
	displayName string
	debounce    time.Duration
	now         func() time.Time

	mu        sync.Mutex
	timer     *time.Timer
	pending   store.Progress
	dirty     bool
	decayDate string
}

// New creates a reconciler for one user identity.
func New(s store.Store, userID, displayName string) *Reconciler {
	return &Reconciler{
		store:       s,
		userID:      userID,
		displayName: displayName,
		debounce:    DefaultDebounce,
		now:         time.Now,
	}
}

// Load reads the persisted record once and applies score decay for elapsed
// idle days. The decayed value is written back immediately so it survives
// even if no score-changing action follows this load.
func (r *Reconciler) Load(ctx context.Context) (Loaded, error) {
	today := r.today()

	rec, err := r.store.GetUserRecord(ctx, r.userID)
	if err != nil {
		return Loaded{}, err
	}

	r.mu.Lock()
	r.decayDate = today
	r.mu.Unlock()

	if rec == nil {
		// First-ever load: nothing stored, nothing to decay. The record is
		// created implicitly on first save.
		return Loaded{}, nil
	}

	score := rec.Score
	if rec.LastDecayAppliedDate != "" {
		if days := wholeDaysBetween(rec.LastDecayAppliedDate, today); days > 0 {
			score -= float64(days * DecayPerDay)
			if score < 0 {
				score = 0
			}
		}
	}

	if score != rec.Score || rec.LastDecayAppliedDate != today {
		err := r.store.SaveProgress(ctx, r.userID, store.Progress{
			DisplayName:            r.displayName,
			Score:                  score,
			Streak:                 rec.Streak,
			LastTaskCompletionDate: rec.LastTaskCompletionDate,
			LastDecayAppliedDate:   today,
		})
		if err != nil {
			// Non-fatal: session continues with in-memory state and the
			// next mutation retries the write.
			slog.Warn("persist decayed record", "user", r.userID, "error", err)
		}
	}

	return Loaded{
		Score:                  score,
		Streak:                 rec.Streak,
		LastTaskCompletionDate: rec.LastTaskCompletionDate,
	}, nil
}

// Record schedules a save of the latest progress values. Rapid successive
// calls collapse into a single write carrying only the last values seen.
func (r *Reconciler) Record(score float64, streak int, lastTaskCompletionDate string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = store.Progress{
		DisplayName:            r.displayName,
		Score:                  score,
		Streak:                 streak,
		LastTaskCompletionDate: lastTaskCompletionDate,
		LastDecayAppliedDate:   r.decayDate,
	}
	r.dirty = true

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		if err := r.Flush(context.Background()); err != nil {
			slog.Warn("debounced save", "user", r.userID, "error", err)
		}
	})
}

// Flush writes any pending progress immediately and cancels the debounce
// timer. On failure the progress stays pending so a later flush retries it.
func (r *Reconciler) Flush(ctx context.Context) error {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	p := r.pending
	r.mu.Unlock()

	if err := r.store.SaveProgress(ctx, r.userID, p); err != nil {
		return err
	}

	r.mu.Lock()
	// Only clear if no newer mutation arrived while saving.
	if r.pending == p {
		r.dirty = false
	}
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) today() string {
	return r.now().Format(models.DateLayout)
}

// wholeDaysBetween returns the whole-day difference between two calendar
// dates in DateLayout form. Unparsable input counts as zero days.
func wholeDaysBetween(from, to string) int {
	a, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return 0
	}
	b, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}
