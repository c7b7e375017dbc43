package sim

import (
	"strings"
	"time"

	"github.com/joescharf/shift/internal/llm"
	"github.com/joescharf/shift/internal/models"
)

// FallbackTaskText is assigned when task generation fails, so the queue
// never stalls on a broken endpoint.
const FallbackTaskText = "Review previous work"

// bootstrap seeds the task list with sequential generations at session
// start, before any completion has happened.
func (e *Engine) bootstrap() {
	for i := 0; i < e.cfg.BootstrapTasks; {
		e.mu.Lock()
		if e.ended {
			e.mu.Unlock()
			return
		}
		if e.generating {
			// A replenishment trigger beat us to it; let it finish.
			e.mu.Unlock()
			time.Sleep(100 * time.Millisecond)
			continue
		}
		e.generating = true
		e.mu.Unlock()

		e.generateTask()
		i++
	}
}

// generateTask requests one task from the manager AI, parses it, and appends
// it with an announcement message. The caller must have set e.generating;
// it is cleared here on both success and failure. Results arriving after
// session end are dropped.
func (e *Engine) generateTask() {
	e.mu.Lock()
	goal := e.cfg.Goal
	name := e.cfg.EmployeeName
	recent := e.recentTaskTextsLocked()
	e.mu.Unlock()

	system, user := llm.BuildTaskPrompt(goal, recent)

	ctx, cancel := e.callCtx()
	defer cancel()
	raw, err := e.llm.Complete(ctx, system, user)

	parsed := llm.ParseTask(raw)
	if err != nil || parsed.Text == "" {
		parsed = llm.ParsedTask{Text: FallbackTaskText, Difficulty: models.MinDifficulty}
	}

	e.mu.Lock()
	e.generating = false
	if err != nil {
		e.lastErr = err.Error()
	}
	if e.ended {
		e.mu.Unlock()
		return
	}

	task := &models.Task{
		ID:         e.idLocked(),
		Text:       parsed.Text,
		Difficulty: parsed.Difficulty,
	}
	e.tasks = append(e.tasks, task)
	msg := e.appendMessageLocked("New task for " + name + ": " + parsed.Text)
	e.mu.Unlock()

	e.emit(Event{Kind: EventTask, Task: *task})
	e.emit(Event{Kind: EventMessage, Message: msg})
}

// CheckinTick runs one manager check-in interval: while the session is
// running and no generative call is in flight, there is a CheckinChance
// probability that the manager sends a spontaneous message. Exported so
// tests can drive the interval deterministically.
func (e *Engine) CheckinTick() {
	e.mu.Lock()
	if e.ended || e.clock.State() != ClockRunning || e.generating {
		e.mu.Unlock()
		return
	}
	if e.rng.Float64() >= e.cfg.CheckinChance {
		e.mu.Unlock()
		return
	}
	e.generating = true
	goal := e.cfg.Goal
	name := e.cfg.EmployeeName
	recent := e.recentTaskTextsLocked()
	minutes := e.clock.Remaining() / 60
	e.mu.Unlock()

	go e.checkin(goal, name, recent, minutes)
}

func (e *Engine) checkin(goal, name string, recent []string, minutes int) {
	system, user := llm.BuildCheckinPrompt(goal, name, recent, minutes)

	ctx, cancel := e.callCtx()
	defer cancel()
	raw, err := e.llm.Complete(ctx, system, user)

	e.mu.Lock()
	e.generating = false
	if err != nil {
		// A failed check-in is just a skipped interval, surfaced in the
		// error slot without interrupting the shift.
		e.lastErr = err.Error()
		e.mu.Unlock()
		return
	}
	if e.ended {
		e.mu.Unlock()
		return
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		e.mu.Unlock()
		return
	}
	msg := e.appendMessageLocked(text)
	e.mu.Unlock()

	e.emit(Event{Kind: EventMessage, Message: msg})
}
