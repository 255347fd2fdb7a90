// Package cmd implements the tayai command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "tayai",
	Short: "TayAI - hair business mentor chatbot backend",
	Long: `TayAI is a retrieval-augmented chatbot backend for the hair business
mentorship domain. It serves a JSON API, manages the knowledge base that
grounds answers, and ships admin tooling for indexing and search.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the loaded configuration.
func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
}

func init() {
	rootCmd.AddCommand(
		newServeCmd(),
		newContentCmd(),
		newReindexCmd(),
		newSearchCmd(),
		newStatsCmd(),
		newAskCmd(),
		newVersionCmd(),
	)
}
