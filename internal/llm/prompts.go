package llm

import (
	"fmt"
	"strings"
)

// BuildTaskPrompt constructs the system and user prompts for generating one
// work task. The model is instructed to end the line with a difficulty digit
// so ParseTask can recover it.
func BuildTaskPrompt(goal string, recentTasks []string) (system string, user string) {
	system = `You are a manager in a workplace simulation assigning work to an employee.
Generate a single, realistic work task that moves the employee toward their goal.

Rules:
- Return ONLY the task text. No numbering, no quotes, no explanation.
- Keep it short: one sentence.
- The task must be thematically distinct from the recent tasks listed.
- The VERY LAST character of your reply must be a single difficulty digit from 1 to 5
  (1 = trivial, 5 = hard), appended directly to the task text.
  Example: Draft the quarterly budget summary3`

	var sb strings.Builder
	sb.WriteString("The employee's goal is: \"")
	sb.WriteString(goal)
	sb.WriteString("\"\n")
	if len(recentTasks) > 0 {
		sb.WriteString("\nRecent tasks (do not repeat these):\n")
		for _, t := range recentTasks {
			sb.WriteString("- ")
			sb.WriteString(t)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nGenerate the next task.")
	user = sb.String()
	return
}

// BuildCheckinPrompt constructs the prompts for a spontaneous manager
// check-in message.
func BuildCheckinPrompt(goal, employee string, recentTasks []string, minutesLeft int) (system string, user string) {
	system = `You are a manager in a workplace simulation.
Generate a short, 1-sentence message to the employee.
It can be encouraging, pressuring, or just a random check-in.
Do not include quotes. Return only the message text.`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Employee name: %s\n", employee)
	fmt.Fprintf(&sb, "Their goal: \"%s\"\n", goal)
	if len(recentTasks) > 0 {
		fmt.Fprintf(&sb, "Current tasks: %s\n", strings.Join(recentTasks, ", "))
	}
	fmt.Fprintf(&sb, "Time remaining: %d minutes\n", minutesLeft)
	user = sb.String()
	return
}

// BuildVerifyPrompt constructs the prompts for judging uploaded proof of
// completion. The model must answer with strict JSON.
func BuildVerifyPrompt(taskText, extractedText string) (system string, user string) {
	system = `You are a manager reviewing an employee's proof that a task was completed.
You are given the task description and text extracted (via OCR) from a screenshot
the employee uploaded. Judge whether the extracted text plausibly evidences that
the task was done.

Return ONLY a JSON object with exactly these fields:
- "approved": boolean, true if the proof is convincing
- "message": a short 1-sentence message to the employee explaining your verdict

Rules:
- OCR text is noisy; tolerate garbled characters and judge on substance.
- Do not approve empty or clearly unrelated proof.
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Task: ")
	sb.WriteString(taskText)
	sb.WriteString("\n\nExtracted proof text:\n")
	sb.WriteString(extractedText)
	user = sb.String()
	return
}
