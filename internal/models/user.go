package models

import "time"

// DateLayout is the calendar-day granularity used for streaks and decay.
const DateLayout = "2006-01-02"

// UserRecord is the persisted per-user document backing score, streak,
// and the leaderboard. Date fields are "YYYY-MM-DD" strings, empty = never.
type UserRecord struct {
	ID                     string    `json:"id"`
	DisplayName            string    `json:"display_name"`
	Score                  float64   `json:"score"`
	Streak                 int       `json:"streak"`
	LastTaskCompletionDate string    `json:"last_task_completion_date"`
	LastDecayAppliedDate   string    `json:"last_decay_applied_date"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}
