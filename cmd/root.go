package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skincheck",
		Short: "Submit skin photos to a classification service",
		Long: `skincheck selects a photo, submits it to a remote skin condition
classifier and shows the returned diagnosis and confidence.

It runs either as a one-shot command or as a local session server that a
UI shell drives over HTTP.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newClassifyCmd())

	return cmd
}
