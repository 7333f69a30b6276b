package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eventcoder/internal/config"
	"eventcoder/internal/logging"
	"eventcoder/internal/metrics"
	"eventcoder/internal/notifications"
	"eventcoder/internal/pipeline"
	"eventcoder/internal/source"
	"eventcoder/internal/tasks"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "run <task> <input.csv>",
		Short: "Classify every pending row of an article table",
		Long: fmt.Sprintf(`Run one classification task over an article table.

Tasks: %s

Rows already present in the output table are skipped, so an interrupted run
can be restarted with the same arguments.`, strings.Join(tasks.Names(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			taskName := strings.ToLower(strings.TrimSpace(args[0]))
			inputPath := args[1]
			output := strings.TrimSpace(outputPath)
			if output == "" {
				output = defaultOutputName(inputPath, taskName)
			}
			output = cfg.OutputPath(output)

			store, err := ctx.openJournal()
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			if store != nil {
				defer store.Close()
			}

			rec := metrics.New()
			classifier, err := ctx.newClassifier(taskName, store, rec)
			if err != nil {
				return err
			}
			task, err := tasks.New(taskName, cfg, classifier)
			if err != nil {
				return err
			}

			var rowDelay time.Duration
			if task.Name() == tasks.NameSentiment {
				rowDelay = time.Duration(cfg.Sentiment.RowDelayMillis) * time.Millisecond
			}

			summary, runErr := pipeline.Run(signalCtx, pipeline.Options{
				Task:            task,
				InputPath:       inputPath,
				OutputPath:      output,
				Columns:         inputColumns(cfg),
				Model:           cfg.LLM.Model,
				Limit:           limit,
				RowDelay:        rowDelay,
				Logger:          logger,
				Journal:         journalOrNil(store),
				Metrics:         rec,
				MetricsTextfile: cfg.Metrics.Textfile,
			})
			if summary.RunID != "" {
				fmt.Fprintln(cmd.OutOrStdout(), renderRunSummary(summary))
			}
			notifyRun(cmd.Context(), notifications.NewService(cfg), summary, runErr, logger)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output table (default <input>_<task>.csv in the output directory)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Classify at most this many rows in this run")
	return cmd
}

func inputColumns(cfg *config.Config) source.Columns {
	return source.Columns{
		ID:      cfg.Input.IDColumn,
		Content: cfg.Input.ContentColumn,
		Source:  cfg.Input.SourceColumn,
		Date:    cfg.Input.DateColumn,
		Title:   cfg.Input.TitleColumn,
	}
}

func defaultOutputName(inputPath, suffix string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s.csv", stem, suffix)
}

func renderRunSummary(s pipeline.Summary) string {
	rows := [][]string{
		{"Run", s.RunID},
		{"Task", s.Task},
		{"Status", s.Status},
		{"Output", s.OutputPath},
		{"Rows read", fmt.Sprint(s.Total)},
		{"Processed", fmt.Sprint(s.Processed)},
		{"Failed", fmt.Sprint(s.Failed)},
		{"No detections", fmt.Sprint(s.NoDetections)},
		{"Skipped (resumed)", fmt.Sprint(s.Skipped)},
		{"Empty", fmt.Sprint(s.Empty)},
		{"Records", fmt.Sprint(s.Records)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

// notifyRun reports the run outcome. Interrupted runs are reported as
// completed with their partial counts; delivery failures are only logged.
func notifyRun(ctx context.Context, svc notifications.Service, s pipeline.Summary, runErr error, logger *slog.Logger) {
	var err error
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		err = svc.NotifyRunFailed(ctx, s.Task, runErr)
	} else {
		err = svc.NotifyRunCompleted(ctx, notifications.RunReport{
			Task:      s.Task,
			Status:    s.Status,
			Output:    s.OutputPath,
			Processed: s.Processed,
			Failed:    s.Failed,
			Skipped:   s.Skipped,
			Records:   s.Records,
			Duration:  s.Duration,
		})
	}
	if err != nil {
		logger.Warn("run notification failed", logging.Error(err))
	}
}
