package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ragent",
	Short: "Agentic retrieval-augmented query engine for your documents",
	Long: `Ragent ingests a document corpus and answers natural language
questions with a self-correcting agentic loop: it routes each query to a
retrieval strategy, grades its own answers for relevance and evidence
support, and retries with reformulated queries until the answer is good
enough. Every run feeds a performance tracker that improves future
strategy selection.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
