package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eventcoder/internal/pipeline"
	"eventcoder/internal/tasks"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var stage string

	cmd := &cobra.Command{
		Use:   "export-relevant <task> <input.csv> <results.csv>",
		Short: "Copy the input rows a relevance or filter run marked relevant",
		Long: `Copy the input rows a relevance or filter run marked relevant into a new
table with the input's columns, ready to feed into a cameo or sentiment run.

For the filter task, --stage keyword selects rows that passed the keyword
filter and --stage final (the default) rows that also passed the LLM check.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			taskName := strings.ToLower(strings.TrimSpace(args[0]))
			selection, err := tasks.RelevantSelection(taskName, strings.ToLower(strings.TrimSpace(stage)))
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = defaultOutputName(args[1], taskName+"_relevant")
			}
			target = cfg.OutputPath(target)

			summary, err := pipeline.Export(pipeline.ExportOptions{
				InputPath:   args[1],
				ResultsPath: args[2],
				OutputPath:  target,
				Columns:     inputColumns(cfg),
				Selection:   selection,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d of %d relevant rows to %s (%d already present)\n",
				summary.Written, summary.Selected, target, summary.Present)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output table (default <input>_<task>_relevant.csv in the output directory)")
	cmd.Flags().StringVar(&stage, "stage", tasks.StageFinal, "Filter stage to export: keyword or final")
	return cmd
}
