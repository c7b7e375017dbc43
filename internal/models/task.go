package models

// Difficulty bounds for a task. Values outside the range are clamped.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ClampDifficulty forces a difficulty into the [MinDifficulty, MaxDifficulty] range.
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Task is a single unit of work assigned during a shift.
// Completed only ever transitions false -> true.
type Task struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Completed  bool   `json:"completed"`
	Difficulty int    `json:"difficulty"`
}

// ChatMessage is one line of manager chat. Messages are append-only.
type ChatMessage struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// SenderManager is the only sender in the chat stream today.
const SenderManager = "Manager"
