package sim

import (
	"strings"

	"github.com/joescharf/shift/internal/models"
)

// Scoring constants.
const (
	basePointsPerDifficulty = 100
	bypassMultiplier        = 0.5
	streakBonusPerDay       = 0.1
)

// bypassRebuke is the fixed message appended when a task is bypassed.
const bypassRebuke = "Half credit it is. Next time I expect to see actual proof on my desk."

// CompleteTask marks a task done and awards points:
//
//	points = difficulty * 100 * (bypass ? 0.5 : 1) * (1 + streak * 0.1)
//
// The streak multiplier uses the streak value before the calendar-day update.
// Unknown or already-completed task IDs are a silent no-op, making duplicate
// invocations (double clicks, late callbacks) harmless.
func (e *Engine) CompleteTask(taskID string, bypass bool) {
	e.mu.Lock()

	task := e.findTaskLocked(taskID)
	if task == nil || task.Completed {
		e.mu.Unlock()
		return
	}
	task.Completed = true

	points := float64(task.Difficulty) * basePointsPerDifficulty
	if bypass {
		points *= bypassMultiplier
	}
	points *= 1 + float64(e.streak)*streakBonusPerDay

	e.score += points
	e.tasksCompleted++

	// Streak is calendar-day based, not session based: same day holds,
	// consecutive days increment, any gap resets.
	today := e.now().Format(models.DateLayout)
	yesterday := e.now().AddDate(0, 0, -1).Format(models.DateLayout)
	switch e.lastCompletionDate {
	case today:
		// unchanged
	case yesterday:
		e.streak++
	default:
		e.streak = 1
	}
	e.lastCompletionDate = today

	var rebuke *models.ChatMessage
	if bypass {
		m := e.appendMessageLocked(bypassRebuke)
		rebuke = &m
	}

	// Completing a task starts the generation cooldown so a completion
	// burst cannot trigger instant back-to-back generation.
	e.cooldownUntil = e.now().Add(e.cfg.Cooldown)

	score, streak, lastDate := e.score, e.streak, e.lastCompletionDate
	e.mu.Unlock()

	if rebuke != nil {
		e.emit(Event{Kind: EventMessage, Message: *rebuke})
	}
	if e.recorder != nil {
		e.recorder.Record(score, streak, lastDate)
	}
}

// BypassTask completes a task without proof for half credit.
func (e *Engine) BypassTask(taskID string) {
	e.CompleteTask(taskID, true)
}

// DeleteTask removes a task unconditionally. No scoring effect.
func (e *Engine) DeleteTask(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.tasks {
		if t.ID == taskID {
			e.tasks = append(e.tasks[:i], e.tasks[i+1:]...)
			return
		}
	}
}

// AddCustomTask inserts a user-authored task, bypassing generation.
// Difficulty is clamped to the valid range. Returns the created task,
// or nil if the text is empty or the session has ended.
func (e *Engine) AddCustomTask(text string, difficulty int) *models.Task {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return nil
	}
	task := &models.Task{
		ID:         e.idLocked(),
		Text:       text,
		Difficulty: models.ClampDifficulty(difficulty),
	}
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()

	e.emit(Event{Kind: EventTask, Task: *task})
	return task
}
