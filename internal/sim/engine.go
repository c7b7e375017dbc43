// Package sim implements the per-shift orchestration engine: the countdown
// clock, the manager dialog and task generation policies, scoring with
// streak multipliers, and proof verification. One Engine owns all mutable
// session state behind a single mutex; timers and LLM calls never touch
// state directly, they re-enter through guarded methods that drop late
// results once the session has ended.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/joescharf/shift/internal/llm"
	"github.com/joescharf/shift/internal/models"
	"github.com/joescharf/shift/internal/store"
)

// Config holds the knobs for one shift session. Zero values fall back to
// the defaults below.
type Config struct {
	EmployeeName string
	Goal         string
	Duration     time.Duration

	TaskFloor       int           // replenish below this many active tasks (default 3)
	RecentContext   int           // recent task texts sent in prompts (default 3)
	Cooldown        time.Duration // generation cooldown after a completion (default 120s)
	CheckinInterval time.Duration // manager check-in cadence (default 60s)
	CheckinChance   float64       // probability of a check-in per interval (default 0.4)
	CallTimeout     time.Duration // per LLM call (default 30s)
	BootstrapTasks  int           // tasks seeded at session start (default 3)
}

func (c Config) withDefaults() Config {
	if c.TaskFloor == 0 {
		c.TaskFloor = 3
	}
	if c.RecentContext == 0 {
		c.RecentContext = 3
	}
	if c.Cooldown == 0 {
		c.Cooldown = 120 * time.Second
	}
	if c.CheckinInterval == 0 {
		c.CheckinInterval = 60 * time.Second
	}
	if c.CheckinChance == 0 {
		c.CheckinChance = 0.4
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.BootstrapTasks == 0 {
		c.BootstrapTasks = 3
	}
	return c
}

// Recorder receives score/streak mutations for persistence. Implemented by
// record.Reconciler; nil when the user is anonymous.
type Recorder interface {
	Record(score float64, streak int, lastTaskCompletionDate string)
}

// EventKind tags engine events delivered to the presentation layer.
type EventKind int

const (
	EventMessage EventKind = iota
	EventTask
	EventEnded
)

// Event is a session state change pushed to subscribers. Delivery is
// best-effort; the Snapshot is always authoritative.
type Event struct {
	Kind    EventKind
	Message models.ChatMessage
	Task    models.Task
}

// Engine is the per-session state machine.
type Engine struct {
	cfg      Config
	llm      llm.Completer
	recorder Recorder

	now   func() time.Time
	newID func() string

	mu                 sync.Mutex
	rng                *rand.Rand
	clock              *Clock
	score              float64
	streak             int
	lastCompletionDate string
	tasksCompleted     int
	tasks              []*models.Task
	messages           []models.ChatMessage
	generating         bool
	cooldownUntil      time.Time
	lastErr            string
	ended              bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	events chan Event
}

// New creates an engine for one shift. The completer is the manager AI
// backend; recorder may be nil for anonymous sessions. The session starts
// with a welcome message from the manager.
func New(cfg Config, completer llm.Completer, recorder Recorder) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:      cfg,
		llm:      completer,
		recorder: recorder,
		now:      time.Now,
		newID:    store.NewULID,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:    NewClock(cfg.Duration),
		events:   make(chan Event, 64),
	}
	e.appendMessageLocked("Welcome to the team! Let's hit that goal: " + cfg.Goal)
	return e
}

// Restore seeds score/streak state loaded from the persisted record.
// Call before Start.
func (e *Engine) Restore(score float64, streak int, lastTaskCompletionDate string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.score = score
	e.streak = streak
	e.lastCompletionDate = lastTaskCompletionDate
}

// Start launches the clock and check-in timers and seeds the initial task
// list. The timers stop when the clock expires, ClockOut is called, or ctx
// is cancelled. In-flight LLM calls are allowed to finish; their results are
// dropped if they land after the session ended.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	e.mu.Unlock()

	go e.run()
	go e.bootstrap()
}

func (e *Engine) run() {
	defer close(e.done)

	clockTicker := time.NewTicker(time.Second)
	defer clockTicker.Stop()
	checkinTicker := time.NewTicker(e.cfg.CheckinInterval)
	defer checkinTicker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-clockTicker.C:
			if e.Tick() {
				return
			}
		case <-checkinTicker.C:
			e.CheckinTick()
		}
	}
}

// Done is closed once the run loop has stopped. Nil before Start.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Events delivers messages, new tasks, and session end to subscribers.
func (e *Engine) Events() <-chan Event { return e.events }

// Tick advances the session by one clock second and evaluates the task
// replenishment trigger. Returns true when the session has ended.
// Exported so tests can drive time deterministically.
func (e *Engine) Tick() bool {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return true
	}

	expired := e.clock.Tick()

	needGen := false
	if !expired && e.clock.State() == ClockRunning &&
		e.activeTaskCountLocked() < e.cfg.TaskFloor &&
		!e.generating && !e.now().Before(e.cooldownUntil) {
		e.generating = true
		needGen = true
	}
	e.mu.Unlock()

	if expired {
		e.end()
		return true
	}
	if needGen {
		go e.generateTask()
	}
	return false
}

// TogglePause freezes or resumes the countdown. Returns true if paused.
func (e *Engine) TogglePause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return false
	}
	return e.clock.TogglePause()
}

// ClockOut ends the session early.
func (e *Engine) ClockOut() {
	e.end()
}

// Ended reports whether the session is over.
func (e *Engine) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

// end terminates the session exactly once: timers stop, state freezes,
// subscribers get EventEnded.
func (e *Engine) end() {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return
	}
	e.ended = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.emit(Event{Kind: EventEnded})
}

// callCtx returns the context for outbound LLM calls with the configured
// timeout applied.
func (e *Engine) callCtx() (context.Context, context.CancelFunc) {
	e.mu.Lock()
	base := e.ctx
	e.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, e.cfg.CallTimeout)
}

// --- locked helpers ---

func (e *Engine) activeTaskCountLocked() int {
	n := 0
	for _, t := range e.tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

func (e *Engine) findTaskLocked(id string) *models.Task {
	for _, t := range e.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// recentTaskTextsLocked returns up to cfg.RecentContext most recent task texts.
func (e *Engine) recentTaskTextsLocked() []string {
	start := len(e.tasks) - e.cfg.RecentContext
	if start < 0 {
		start = 0
	}
	var texts []string
	for _, t := range e.tasks[start:] {
		texts = append(texts, t.Text)
	}
	return texts
}

func (e *Engine) appendMessageLocked(text string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:     e.idLocked(),
		Sender: models.SenderManager,
		Text:   text,
	}
	e.messages = append(e.messages, msg)
	return msg
}

func (e *Engine) idLocked() string {
	if e.newID != nil {
		return e.newID()
	}
	return store.NewULID()
}

// emit delivers an event without ever blocking the engine. Slow or absent
// subscribers just miss events; snapshots stay authoritative.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

// --- snapshot ---

// Snapshot is a point-in-time copy of session state for display.
type Snapshot struct {
	EmployeeName    string               `json:"employee_name"`
	Goal            string               `json:"goal"`
	State           string               `json:"state"`
	TimeLeftSeconds int                  `json:"time_left_seconds"`
	TimeLeftDisplay string               `json:"time_left_display"`
	Score           float64              `json:"score"`
	DisplayScore    int                  `json:"display_score"`
	Streak          int                  `json:"streak"`
	TasksCompleted  int                  `json:"tasks_completed"`
	Tasks           []models.Task        `json:"tasks"`
	Messages        []models.ChatMessage `json:"messages"`
	LastError       string               `json:"last_error,omitempty"`
}

// Snapshot returns a copy of the current session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.clock.State().String()
	if e.ended {
		state = "ended"
	}

	tasks := make([]models.Task, len(e.tasks))
	for i, t := range e.tasks {
		tasks[i] = *t
	}
	messages := make([]models.ChatMessage, len(e.messages))
	copy(messages, e.messages)

	return Snapshot{
		EmployeeName:    e.cfg.EmployeeName,
		Goal:            e.cfg.Goal,
		State:           state,
		TimeLeftSeconds: e.clock.Remaining(),
		TimeLeftDisplay: FormatClock(e.clock.Remaining()),
		Score:           e.score,
		DisplayScore:    int(e.score + 0.5),
		Streak:          e.streak,
		TasksCompleted:  e.tasksCompleted,
		Tasks:           tasks,
		Messages:        messages,
		LastError:       e.lastErr,
	}
}

var errManagerBusy = fmt.Errorf("the manager is busy with another request, try again in a moment")
