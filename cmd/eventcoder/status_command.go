package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"eventcoder/internal/journal"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var taskFilter string
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs and call outcomes from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			if store == nil {
				return errors.New("journal is disabled (journal.enabled = false)")
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			if id := strings.TrimSpace(runID); id != "" {
				return renderRunDetail(cmd, store, id, limit, colorize)
			}

			runs, err := store.RecentRuns(cmd.Context(), strings.ToLower(strings.TrimSpace(taskFilter)), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.Task,
					colorizeStatus(run.Status, colorize),
					run.Started().Local().Format("2006-01-02 15:04:05"),
					formatDuration(run.Duration()),
					fmt.Sprint(run.RowsProcessed),
					fmt.Sprint(run.RowsFailed),
					fmt.Sprint(run.RowsSkipped),
					fmt.Sprint(run.Records),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Task", "Status", "Started", "Duration", "Processed", "Failed", "Skipped", "Records"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			stats, err := store.CallStats(cmd.Context(), "")
			if err != nil {
				return err
			}
			if len(stats) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderCallStats(stats))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskFilter, "task", "", "Only list runs of this task")
	cmd.Flags().StringVar(&runID, "run", "", "Show call statistics and failures for one run")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum runs (or failed calls with --run) to list")
	return cmd
}

func renderRunDetail(cmd *cobra.Command, store *journal.Store, id string, limit int, colorize bool) error {
	out := cmd.OutOrStdout()
	run, err := store.Run(cmd.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return err
	}

	for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), run.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("Task", statusInfo, run.Task, colorize))
	fmt.Fprintln(out, renderStatusLine("Model", statusInfo, run.Model, colorize))
	fmt.Fprintln(out, renderStatusLine("Input", statusInfo, run.InputPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Output", statusInfo, run.OutputPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Rows", statusInfo,
		fmt.Sprintf("%d read, %d processed, %d failed, %d skipped", run.RowsTotal, run.RowsProcessed, run.RowsFailed, run.RowsSkipped), colorize))
	if run.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.Error, colorize))
	}

	stats, err := store.CallStats(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	if len(stats) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderCallStats(stats))
	}

	failed, err := store.FailedCalls(cmd.Context(), run.ID, limit)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		rows := make([][]string, 0, len(failed))
		for _, call := range failed {
			rows = append(rows, []string{call.RowID, call.Call, fmt.Sprint(call.Attempts), truncateText(call.Error, 80)})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Row", "Call", "Attempts", "Error"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	}
	return nil
}

func renderCallStats(stats []journal.CallStat) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Task,
			s.Call,
			fmt.Sprint(s.Total),
			fmt.Sprint(s.Failed),
			fmt.Sprintf("%.2f", s.AvgAttempts),
			formatDuration(time.Duration(s.AvgDurationMS) * time.Millisecond),
		})
	}
	return renderTable(
		[]string{"Task", "Call", "Calls", "Failed", "Avg attempts", "Avg latency"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func truncateText(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
