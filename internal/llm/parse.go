package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joescharf/shift/internal/models"
)

// ParsedTask is a task description recovered from raw model output.
type ParsedTask struct {
	Text       string
	Difficulty int
}

// ParseTask splits raw model output into task text and difficulty.
// The model is asked to end its reply with a single difficulty digit; if one
// is present it is stripped (exactly one) and clamped to the valid range,
// otherwise difficulty defaults to 1. Malformed output never fails here,
// it only degrades.
func ParseTask(raw string) ParsedTask {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ParsedTask{Text: "", Difficulty: models.MinDifficulty}
	}

	last := text[len(text)-1]
	if last < '0' || last > '9' {
		return ParsedTask{Text: text, Difficulty: models.MinDifficulty}
	}

	return ParsedTask{
		Text:       strings.TrimSpace(text[:len(text)-1]),
		Difficulty: models.ClampDifficulty(int(last - '0')),
	}
}

// Verdict is the manager's structured judgment of uploaded proof.
type Verdict struct {
	Approved bool   `json:"approved"`
	Message  string `json:"message"`
}

// ParseVerdict parses a verification reply as strict JSON. Unlike task
// parsing this is a hard failure on malformed output: a verdict that cannot
// be parsed must never be treated as approval.
func ParseVerdict(raw string) (*Verdict, error) {
	text := stripFence(raw)

	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("manager returned invalid response format: %w", err)
	}
	return &v, nil
}

// stripFence removes markdown code fencing the model sometimes wraps
// JSON replies in.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
