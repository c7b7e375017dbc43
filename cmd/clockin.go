package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/shift/internal/level"
	"github.com/joescharf/shift/internal/llm"
	"github.com/joescharf/shift/internal/ocr"
	"github.com/joescharf/shift/internal/output"
	"github.com/joescharf/shift/internal/record"
	"github.com/joescharf/shift/internal/sim"
)

var (
	clockinName     string
	clockinGoal     string
	clockinDuration int
)

var clockinCmd = &cobra.Command{
	Use:   "clockin",
	Short: "Clock in for a shift",
	Long: `Clock in for a timed work session. The manager greets you, hands out
tasks sized 1-5, and checks in while you work. Complete tasks before the
clock runs out; completions build a daily streak multiplier, bypassed
tasks score half.

While clocked in:
  tasks              list open tasks
  done <n>           complete task n
  bypass <n>         skip task n for half credit
  drop <n>           remove task n without scoring
  add <text> [1-5]   add your own task, optional trailing difficulty
  prove <n> <image>  submit a screenshot as proof for task n
  pause              pause or resume the clock
  status             show score, streak, and time left
  out                clock out early`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return clockinRun(cmd.Context())
	},
}

func init() {
	clockinCmd.Flags().StringVarP(&clockinName, "name", "N", "", "Employee name (default: configured user alias)")
	clockinCmd.Flags().StringVarP(&clockinGoal, "goal", "g", "", "What this shift is about (required)")
	clockinCmd.Flags().IntVarP(&clockinDuration, "duration", "d", 0, "Shift length in minutes")
	_ = clockinCmd.MarkFlagRequired("goal")
	rootCmd.AddCommand(clockinCmd)
}

func clockinRun(ctx context.Context) error {
	completer := newLLMClient()
	if completer == nil {
		return fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}

	userID, alias := userIdentity()
	name := clockinName
	if name == "" {
		name = alias
	}
	if name == "" {
		name = "Employee"
	}

	minutes := clockinDuration
	if minutes <= 0 {
		minutes = viper.GetInt("session.duration_minutes")
	}

	// Persistence is opt-in via a configured identity.
	var rec *record.Reconciler
	var loaded record.Loaded
	if userID != "" {
		s, err := getStore()
		if err != nil {
			return err
		}
		rec = record.New(s, userID, name)
		loaded, err = rec.Load(ctx)
		if err != nil {
			return fmt.Errorf("load user record: %w", err)
		}
	}

	var llmC llm.Completer = completer
	var engineRec sim.Recorder
	if rec != nil {
		engineRec = rec
	}

	engine := sim.New(sim.Config{
		EmployeeName: name,
		Goal:         clockinGoal,
		Duration:     time.Duration(minutes) * time.Minute,
	}, llmC, engineRec)
	engine.Restore(loaded.Score, loaded.Streak, loaded.LastTaskCompletionDate)

	ui.Info("Clocked in as %s for %d minutes. Goal: %s", output.Cyan(name), minutes, clockinGoal)
	if loaded.Score > 0 || loaded.Streak > 0 {
		l := level.ForScore(loaded.Score)
		ui.Info("Carrying over %s points, %d-day streak (%s)",
			output.FormatScore(loaded.Score), loaded.Streak, output.LevelColor(l.Title, l.Tier))
	}

	engine.Start(ctx)
	go printEvents(engine)

	// Read commands until the shift ends or the employee clocks out.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-engine.Done():
			return clockoutSummary(ctx, engine, rec)
		case line, ok := <-lines:
			if !ok {
				engine.ClockOut()
				return clockoutSummary(ctx, engine, rec)
			}
			if quit := runShiftCommand(engine, line); quit {
				engine.ClockOut()
				return clockoutSummary(ctx, engine, rec)
			}
		}
	}
}

// printEvents streams manager chat and new tasks to the terminal as they
// happen, independent of the command prompt.
func printEvents(engine *sim.Engine) {
	for ev := range engine.Events() {
		switch ev.Kind {
		case sim.EventMessage:
			ui.Manager(ev.Message.Text)
		case sim.EventTask:
			fmt.Fprintf(ui.Out, "  [%s] %s\n", output.DifficultyColor(ev.Task.Difficulty), ev.Task.Text)
		case sim.EventEnded:
			ui.Warning("The clock hit zero. Shift over.")
		}
	}
}

// runShiftCommand dispatches one line of input. Returns true on "out".
func runShiftCommand(engine *sim.Engine, line string) bool {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "tasks":
		printTasks(engine.Snapshot())
	case "done":
		if id, ok := taskIDByIndex(engine, fields); ok {
			engine.CompleteTask(id, false)
			printScore(engine.Snapshot())
		}
	case "bypass":
		if id, ok := taskIDByIndex(engine, fields); ok {
			engine.BypassTask(id)
			printScore(engine.Snapshot())
		}
	case "drop":
		if id, ok := taskIDByIndex(engine, fields); ok {
			engine.DeleteTask(id)
		}
	case "add":
		// A trailing digit sets difficulty, e.g. "add write the report 3".
		parsed := llm.ParseTask(strings.TrimPrefix(line, "add"))
		if task := engine.AddCustomTask(parsed.Text, parsed.Difficulty); task == nil {
			ui.Error("usage: add <task text> [difficulty 1-5]")
		} else {
			fmt.Fprintf(ui.Out, "  [%s] %s\n", output.DifficultyColor(task.Difficulty), task.Text)
		}
	case "prove":
		proveTask(engine, fields)
	case "pause":
		if engine.TogglePause() {
			ui.Info("Clock paused.")
		} else {
			ui.Info("Back on the clock.")
		}
	case "status":
		snap := engine.Snapshot()
		printScore(snap)
		ui.Info("Time left: %s (%s)", snap.TimeLeftDisplay, snap.State)
	case "out":
		return true
	default:
		ui.Error("unknown command %q (try: tasks, done, bypass, drop, add, prove, pause, status, out)", fields[0])
	}
	return false
}

// taskIDByIndex maps a 1-based open-task number from the listing to a task ID.
func taskIDByIndex(engine *sim.Engine, fields []string) (string, bool) {
	if len(fields) < 2 {
		ui.Error("usage: %s <task number>", fields[0])
		return "", false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		ui.Error("not a task number: %s", fields[1])
		return "", false
	}

	idx := 0
	for _, t := range engine.Snapshot().Tasks {
		if t.Completed {
			continue
		}
		idx++
		if idx == n {
			return t.ID, true
		}
	}
	ui.Error("no open task #%d (run 'tasks')", n)
	return "", false
}

func printTasks(snap sim.Snapshot) {
	idx := 0
	for _, t := range snap.Tasks {
		if t.Completed {
			continue
		}
		idx++
		fmt.Fprintf(ui.Out, "  %d. [%s] %s\n", idx, output.DifficultyColor(t.Difficulty), t.Text)
	}
	if idx == 0 {
		ui.Info("No open tasks. The manager will be in touch.")
	}
}

func printScore(snap sim.Snapshot) {
	l := level.ForScore(snap.Score)
	ui.Info("Score: %s  Streak: %d  Level: %s",
		output.FormatScore(snap.Score), snap.Streak, output.LevelColor(l.Title, l.Tier))
}

// proveTask runs OCR on a screenshot and submits the text for manager review.
func proveTask(engine *sim.Engine, fields []string) {
	if len(fields) < 3 {
		ui.Error("usage: prove <task number> <image path>")
		return
	}

	id, ok := taskIDByIndex(engine, fields[:2])
	if !ok {
		return
	}
	imagePath := fields[2]
	if !ocr.IsImagePath(imagePath) {
		ui.Error("not an image file: %s", imagePath)
		return
	}

	extractor := &ocr.Tesseract{Binary: viper.GetString("ocr.binary")}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := extractor.Extract(ctx, imagePath, func(pct int) {
		ui.VerboseLog("reading proof... %d%%", pct)
	})
	if err != nil {
		ui.Error("could not read proof: %v", err)
		return
	}

	if err := engine.VerifyTask(id, text); err != nil {
		ui.Error("%v", err)
		return
	}
	printScore(engine.Snapshot())
}

// clockoutSummary flushes the record and prints the end-of-shift recap.
func clockoutSummary(ctx context.Context, engine *sim.Engine, rec *record.Reconciler) error {
	snap := engine.Snapshot()

	if rec != nil {
		if err := rec.Flush(ctx); err != nil {
			ui.Warning("could not save progress: %v", err)
		}
	}

	l := level.ForScore(snap.Score)
	fmt.Fprintln(ui.Out)
	ui.Success("Shift complete: %d task(s) done", snap.TasksCompleted)
	ui.Info("Score: %s  Streak: %d  Level: %s",
		output.FormatScore(snap.Score), snap.Streak, output.LevelColor(l.Title, l.Tier))
	return nil
}
