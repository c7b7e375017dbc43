package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/shift/internal/level"
	"github.com/joescharf/shift/internal/output"
)

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"lb", "top"},
	Short:   "Show the top players by score",
	RunE: func(cmd *cobra.Command, args []string) error {
		return leaderboardRun()
	},
}

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "l", 10, "Number of players to show")
	rootCmd.AddCommand(leaderboardCmd)
}

func leaderboardRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	users, err := s.TopUsers(rootCmd.Context(), leaderboardLimit)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}
	if len(users) == 0 {
		ui.Info("Nobody on the board yet. Clock in and get to work.")
		return nil
	}

	table := ui.Table([]string{"Rank", "Player", "Score", "Level", "Streak"})
	for i, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.ID
		}
		l := level.ForScore(u.Score)
		table.Append([]string{
			strconv.Itoa(i + 1),
			output.Truncate(name, 24),
			output.FormatScore(u.Score),
			output.LevelColor(l.Title, l.Tier),
			strconv.Itoa(u.Streak),
		})
	}
	return table.Render()
}
