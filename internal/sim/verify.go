package sim

import (
	"fmt"

	"github.com/joescharf/shift/internal/llm"
)

// Default verdict messages used when the model approves or rejects without
// saying anything.
const (
	defaultApproveMessage = "Proof checks out. Good work."
	defaultRejectMessage  = "That proof doesn't demonstrate the task was completed."
)

// VerifyTask asks the manager AI to judge OCR-extracted proof text for a
// task. Approval completes the task at full credit; rejection and any parse
// failure return an error so the upload UI can stay open for a retry.
// A verdict that cannot be parsed is never treated as approval.
func (e *Engine) VerifyTask(taskID, extractedText string) error {
	e.mu.Lock()
	task := e.findTaskLocked(taskID)
	if task == nil {
		e.mu.Unlock()
		return fmt.Errorf("task not found: %s", taskID)
	}
	if task.Completed {
		e.mu.Unlock()
		return fmt.Errorf("task already completed")
	}
	if e.generating {
		e.mu.Unlock()
		return errManagerBusy
	}
	e.generating = true
	taskText := task.Text
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.generating = false
		e.mu.Unlock()
	}()

	system, user := llm.BuildVerifyPrompt(taskText, extractedText)

	ctx, cancel := e.callCtx()
	defer cancel()
	raw, err := e.llm.Complete(ctx, system, user)
	if err != nil {
		return fmt.Errorf("verification request: %w", err)
	}

	verdict, err := llm.ParseVerdict(raw)
	if err != nil {
		return err
	}

	if verdict.Approved {
		message := verdict.Message
		if message == "" {
			message = defaultApproveMessage
		}
		e.CompleteTask(taskID, false)
		e.addMessage(message)
		return nil
	}

	message := verdict.Message
	if message == "" {
		message = defaultRejectMessage
	}
	e.addMessage(message)
	return fmt.Errorf("manager rejected the proof: %s", message)
}

// addMessage appends a manager chat line and notifies subscribers.
func (e *Engine) addMessage(text string) {
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return
	}
	msg := e.appendMessageLocked(text)
	e.mu.Unlock()
	e.emit(Event{Kind: EventMessage, Message: msg})
}
