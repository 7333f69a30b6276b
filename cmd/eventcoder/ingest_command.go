package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eventcoder/internal/feeds"
	"eventcoder/internal/sink"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <table.csv> [feed-url...]",
		Short: "Append RSS/Atom feed items to an article table",
		Long: `Fetch RSS/Atom feeds and append their items to an article table.

Feed URLs come from the arguments or, when none are given, from feeds.urls in
the configuration. Items already present in the table are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			urls := args[1:]
			if len(urls) == 0 {
				urls = cfg.Feeds.URLs
			}
			if len(urls) == 0 {
				return errors.New("no feed urls: pass them as arguments or set feeds.urls")
			}

			target := cfg.OutputPath(args[0])
			out, err := sink.Open(target, feeds.Columns, sink.Options{IDColumn: feeds.Columns[0]})
			if err != nil {
				return fmt.Errorf("open table: %w", err)
			}
			defer out.Close()

			ingester := feeds.New(time.Duration(cfg.Feeds.TimeoutSeconds)*time.Second, feeds.WithLogger(logger))
			summary, err := ingester.Ingest(signalCtx, urls, out)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Table", target},
				{"Feeds", fmt.Sprint(summary.Feeds)},
				{"Failed feeds", fmt.Sprint(summary.Failed)},
				{"Items", fmt.Sprint(summary.Items)},
				{"Added", fmt.Sprint(summary.Added)},
				{"Already present", fmt.Sprint(summary.Present)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
	return cmd
}
