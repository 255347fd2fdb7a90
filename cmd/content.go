package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taysluxe/tayai/internal/app"
	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/knowledge"
)

// withApp loads config, wires the full application, and runs fn with
// it. Used by every admin command that touches the knowledge base.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	return fn(ctx, a)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage knowledge base content",
	}
	cmd.AddCommand(
		newContentAddCmd(),
		newContentListCmd(),
		newContentGetCmd(),
		newContentUpdateCmd(),
		newContentDeleteCmd(),
		newContentBulkCmd(),
	)
	return cmd
}

func newContentAddCmd() *cobra.Command {
	var in knowledge.CreateInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a knowledge item and index it",
		RunE: func(*cobra.Command, []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				item, err := a.Knowledge.Create(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(item)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "item title (required)")
	cmd.Flags().StringVar(&in.Content, "content", "", "item content (required)")
	cmd.Flags().StringVar(&in.Category, "category", "", "item category (required)")
	cmd.Flags().StringSliceVar(&in.Tags, "tags", nil, "comma-separated tags")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newContentListCmd() *cobra.Command {
	var (
		category        string
		includeInactive bool
		limit, offset   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge items",
		RunE: func(*cobra.Command, []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				items, err := a.Knowledge.List(ctx, category, !includeInactive, limit, offset)
				if err != nil {
					return err
				}
				if items == nil {
					items = []knowledge.Item{}
				}
				return printJSON(items)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "include deactivated items")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func newContentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one knowledge item",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				item, err := a.Knowledge.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(item)
			})
		},
	}
}

func newContentUpdateCmd() *cobra.Command {
	var (
		title, content, category string
		deactivate, activate     bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a knowledge item, reindexing when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			var patch knowledge.Patch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("content") {
				patch.Content = &content
			}
			if cmd.Flags().Changed("category") {
				patch.Category = &category
			}
			switch {
			case deactivate:
				off := false
				patch.IsActive = &off
			case activate:
				on := true
				patch.IsActive = &on
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				item, err := a.Knowledge.Update(ctx, id, patch)
				if err != nil {
					return err
				}
				return printJSON(item)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().BoolVar(&deactivate, "deactivate", false, "hide item from retrieval")
	cmd.Flags().BoolVar(&activate, "activate", false, "restore a deactivated item")
	cmd.MarkFlagsMutuallyExclusive("deactivate", "activate")
	return cmd
}

func newContentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a knowledge item and its vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Knowledge.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", id)
				return nil
			})
		},
	}
}

func newContentBulkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk <file.json>",
		Short: "Create knowledge items from a JSON array file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			var inputs []knowledge.CreateInput
			if err := json.Unmarshal(raw, &inputs); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}
			if len(inputs) == 0 {
				return fmt.Errorf("%s contains no items", args[0])
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				result := a.Knowledge.BulkCreate(ctx, inputs)
				fmt.Printf("created %d of %d items\n", len(result.Created), len(inputs))
				for _, e := range result.Errors {
					fmt.Printf("  error: %s\n", e)
				}
				return nil
			})
		},
	}
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild vectors for all active knowledge items",
		RunE: func(*cobra.Command, []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				report, err := a.Knowledge.ReindexAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	var (
		topK     int
		category string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			query := args[0]
			for _, extra := range args[1:] {
				query += " " + extra
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				results, err := a.Knowledge.Search(ctx, query, topK, category)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Println("no matches")
					return nil
				}
				return printJSON(results)
			})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "number of results")
	cmd.Flags().StringVar(&category, "category", "", "restrict to one category")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base and vector index statistics",
		RunE: func(*cobra.Command, []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				stats, err := a.Knowledge.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
}
