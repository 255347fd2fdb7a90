package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taysluxe/tayai/internal/app"
	"github.com/taysluxe/tayai/internal/chat"
	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/topic"
)

func newAskCmd() *cobra.Command {
	var (
		forcedTopic string
		showPrompt  bool
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message through the persona pipeline",
		Long: `Ask runs a single message through topic detection, retrieval, and
persona prompt composition without touching the database. History and
usage tracking are skipped, which makes it useful for trying prompt
changes before deploying them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			var forced topic.Topic
			if forcedTopic != "" {
				if !topic.Valid(forcedTopic) {
					return fmt.Errorf("unknown topic %q, valid topics: %v", forcedTopic, topic.All())
				}
				forced = topic.Topic(forcedTopic)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger := newLogger(cfg)
			a, err := app.SetupLite(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("initializing application: %w", err)
			}
			defer func() { _ = a.Close() }()

			svc := chat.NewService(a.Genkit, cfg, nil, a.Retriever, nil, nil, logger)
			result, err := svc.TestPersona(ctx, message, forced)
			if err != nil {
				return err
			}

			fmt.Printf("topic: %s\n", result.Topic)
			if len(result.Sources) > 0 {
				fmt.Printf("sources: %v\n", result.Sources)
			}
			if showPrompt {
				fmt.Printf("\nsystem prompt preview:\n%s\n", result.PromptPreview)
			}
			fmt.Printf("\n%s\n", result.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&forcedTopic, "topic", "", "force a topic instead of detecting one")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "print the composed system prompt preview")
	return cmd
}
