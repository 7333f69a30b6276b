package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"eventcoder/internal/fileutil"
	"eventcoder/internal/logging"
	"eventcoder/internal/metrics"
	"eventcoder/internal/tasks"
)

func newClusterCommand(ctx *commandContext) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "cluster <cameo-output.csv>",
		Short: "Group the per-document topics of a cameo run into themes",
		Args:  cobra.ExactArgs(1),
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

			topics, err := tasks.CollectTopics(args[0])
			if err != nil {
				return fmt.Errorf("collect topics: %w", err)
			}

			target := strings.TrimSpace(reportPath)
			if target == "" {
				base := filepath.Base(args[0])
				target = strings.TrimSuffix(base, filepath.Ext(base)) + "_topic_clusters.txt"
			}
			target = cfg.OutputPath(target)

			report := tasks.NoTopicsReport
			if len(topics) > 0 {
				if err := cfg.RequireCredentials(); err != nil {
					return err
				}
				rec := metrics.New()
				classifier, err := ctx.newClassifier("cluster", nil, rec)
				if err != nil {
					return err
				}
				report, err = tasks.Cluster(signalCtx, classifier, topics, tasks.ClusterOptions{
					Language:  cfg.Output.Language,
					MaxTokens: cfg.Cameo.ClusterMaxTokens,
				})
				if err != nil {
					return err
				}
				if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
					logger.Warn("metrics textfile write failed", logging.Error(err))
				}
			}

			if err := fileutil.WriteFileAtomic(target, []byte(report+"\n"), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			logger.Info("cluster report written",
				logging.String("path", target),
				logging.Int("topics", len(topics)),
			)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Clustered %d topics into %s\n", len(topics), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reportPath, "output", "o", "", "Report path (default <input>_topic_clusters.txt in the output directory)")
	return cmd
}
