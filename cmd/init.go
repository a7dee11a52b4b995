package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ragent configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure ragent for your document corpus and generates a .ragent.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
