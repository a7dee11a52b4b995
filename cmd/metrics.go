package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/tracker"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show per-strategy performance metrics and learning insights",
	Long: `Aggregates the recorded query history into per intent/strategy metrics
(success rate, average confidence, average iterations) and prints the
learning insights derived from them.`,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().Int("history", 0, "also show the N most recent queries")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	historyN, _ := cmd.Flags().GetInt("history")

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

	metrics := tr.AllMetrics()
	if len(metrics) == 0 {
		fmt.Println("No queries recorded yet. Run `ragent query` first.")
		return nil
	}

	fmt.Println("Strategy metrics:")
	for _, m := range metrics {
		fmt.Printf("  %-12s %-10s %4d queries  %5.1f%% success  conf %.2f  iters %.1f  %s avg\n",
			m.Intent, m.Strategy, m.TotalQueries, m.SuccessRate*100,
			m.AverageConfidence, m.AverageIterations,
			m.AverageRetrievalTime.Round(time.Millisecond))
	}

	if insights := tr.Insights(); len(insights) > 0 {
		fmt.Println("\nInsights:")
		for _, in := range insights {
			fmt.Printf("  [%s/%s] %s\n", in.Kind, in.Impact, in.Description)
			if in.SuggestedAction != "" {
				fmt.Printf("    -> %s\n", in.SuggestedAction)
			}
		}
	}

	if historyN > 0 {
		history, err := tr.QueryHistory(ctx)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if len(history) > historyN {
			history = history[:historyN]
		}
		fmt.Println("\nRecent queries:")
		for _, rec := range history {
			fmt.Printf("  %s  %-10s conf %.2f  %q\n",
				rec.CreatedAt.Format("2006-01-02 15:04"), rec.Strategy, rec.Confidence, rec.Query)
		}
	}

	return nil
}
