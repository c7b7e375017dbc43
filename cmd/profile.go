package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/shift/internal/level"
	"github.com/joescharf/shift/internal/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile [user-id]",
	Short: "Show a player's record",
	Long: `Show the persisted record for a player: score, career level, streak,
and last activity. With no argument, shows the configured user.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := userIdentity()
		if len(args) > 0 {
			id = args[0]
		}
		if id == "" {
			return fmt.Errorf("no user id given and none configured (set user.id)")
		}
		return profileRun(id)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func profileRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	u, err := s.GetUserRecord(rootCmd.Context(), id)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if u == nil {
		return fmt.Errorf("no record for %q — clock in once to create one", id)
	}

	name := u.DisplayName
	if name == "" {
		name = u.ID
	}
	l := level.ForScore(u.Score)

	ui.Info("%s (%s)", output.Cyan(name), u.ID)
	fmt.Fprintf(ui.Out, "  Score   %s\n", output.FormatScore(u.Score))
	fmt.Fprintf(ui.Out, "  Level   %s\n", output.LevelColor(l.Title, l.Tier))
	fmt.Fprintf(ui.Out, "  Streak  %d day(s)\n", u.Streak)
	if u.LastTaskCompletionDate != "" {
		fmt.Fprintf(ui.Out, "  Last task completed %s\n", u.LastTaskCompletionDate)
	}
	return nil
}
