package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/orchestrator"
	"github.com/tobiasweide/ragent/internal/progress"
	"github.com/tobiasweide/ragent/internal/tracker"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against the ingested corpus",
	Long: `Runs the full agentic loop for one question: routes it to a retrieval
strategy, generates a grounded answer, evaluates it, and retries with a
reformulated query when the evidence is weak.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueryCmd,
}

func init() {
	queryCmd.Flags().Int("top-k", 0, "number of passages to retrieve (0 = config default)")
	queryCmd.Flags().Int("max-iterations", 0, "maximum retry iterations (0 = config default)")
	queryCmd.Flags().Bool("json", false, "output the full response as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	topK, _ := cmd.Flags().GetInt("top-k")
	maxIterations, _ := cmd.Flags().GetInt("max-iterations")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	store := corpus.NewStore(database)
	engine, err := buildEngine(ctx, cfg, store)
	if err != nil {
		return err
	}
	if engine.DocumentCount() == 0 {
		fmt.Println("Corpus is empty. Run `ragent ingest` first.")
		return nil
	}

	tr, err := tracker.New(database)
	if err != nil {
		return fmt.Errorf("opening performance tracker: %w", err)
	}

	orch, err := buildOrchestrator(cfg, engine, tr)
	if err != nil {
		return err
	}

	run := runConfig(cfg)
	if topK > 0 {
		run.TopK = topK
	}
	if maxIterations > 0 {
		run.MaxIterations = maxIterations
	}

	var reporter progress.Reporter
	if !jsonOutput {
		reporter = progress.NewReporter()
		run.OnProgress = reporter.Step
	}

	resp, err := orch.Run(ctx, question, run)
	if reporter != nil {
		reporter.Finish()
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(resp)
	return nil
}

func printResponse(resp *orchestrator.Response) {
	fmt.Printf("\n%s\n\n", resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Println("Sources:")
		for i, h := range resp.Sources {
			fmt.Printf("  [%d] %s (%.1f%%)\n", i+1, h.Title, h.Score*100)
		}
		fmt.Println()
	}

	fmt.Printf("Intent: %s, strategy: %s, iterations: %d, confidence: %.2f\n",
		resp.Routing.Intent, resp.Routing.Strategy, resp.Iterations, resp.Evaluation.Confidence)
	if resp.Metadata.NeedsImprovement {
		fmt.Println("Note: confidence stayed below the threshold; treat this answer with care.")
	}
	if resp.Metadata.Degraded {
		fmt.Println("Note: a collaborator failed during this run; the answer is degraded.")
	}
	for _, s := range resp.Metadata.ImprovementSuggestions {
		fmt.Printf("  - %s\n", s)
	}

	fmt.Printf("\nRun ID: %s (rate it with `ragent feedback %s <positive|negative|neutral>`)\n",
		resp.RunID, resp.RunID)
}
