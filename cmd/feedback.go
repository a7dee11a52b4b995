package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/tracker"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [run-id] [positive|negative|neutral]",
	Short: "Record a verdict for a past query run",
	Long: `Records user feedback for a previously answered question. Feedback is
stored with the run's performance record and influences which retrieval
strategy future queries of the same intent are routed to.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	runID := args[0]

	feedback, err := tracker.ParseFeedback(args[1])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	tr, err := tracker.New(database)
	if err != nil {
		return fmt.Errorf("opening performance tracker: %w", err)
	}

	if err := tr.RecordUserFeedback(ctx, runID, feedback); err != nil {
		return err
	}

	fmt.Printf("Feedback %q recorded for run %s.\n", feedback, runID)
	return nil
}
