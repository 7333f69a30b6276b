package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"slices"

	"eventcoder/internal/logging"
	"eventcoder/internal/services"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
	"eventcoder/internal/tasks"
)

// ExportOptions configures Export.
type ExportOptions struct {
	InputPath   string
	ResultsPath string
	OutputPath  string
	Columns     source.Columns
	Selection   tasks.Selection
	Logger      *slog.Logger
}

// ExportSummary reports what Export wrote.
type ExportSummary struct {
	Selected int
	Written  int
	Present  int
}

// Export copies the input rows whose result row matches the selection into a
// new table with the input's header. Rows already in the output are left
// alone, so an export can be repeated as the results table grows.
func Export(opts ExportOptions) (ExportSummary, error) {
	logger := logging.NewComponentLogger(opts.Logger, "export")
	selected, err := selectIDs(opts.ResultsPath, opts.Selection)
	if err != nil {
		return ExportSummary{}, services.Wrap(services.ErrInput, "export", "read results", "", err)
	}

	reader, err := source.Open(opts.InputPath, opts.Columns)
	if err != nil {
		return ExportSummary{}, services.Wrap(services.ErrInput, "export", "open input", "", err)
	}
	defer reader.Close()

	header := reader.Header()
	out, err := sink.Open(opts.OutputPath, header, sink.Options{IDColumn: opts.Columns.ID})
	if err != nil {
		return ExportSummary{}, services.Wrap(services.ErrOutput, "export", "open output", "", err)
	}
	defer out.Close()

	summary := ExportSummary{Selected: len(selected)}
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, services.Wrap(services.ErrInput, "export", "read row", "", err)
		}
		if !selected.Has(row.ID) {
			continue
		}
		if out.Processed(row.ID) {
			summary.Present++
			continue
		}
		record := make(sink.Record, len(header))
		for i, name := range header {
			record[i] = row.Fields[name]
		}
		// The sink compares against the trimmed identifier.
		record[slices.Index(header, opts.Columns.ID)] = row.ID
		if err := out.Append(row.ID, record); err != nil {
			return summary, services.Wrap(services.ErrOutput, "export", "append", row.ID, err)
		}
		summary.Written++
	}
	logger.Info("export finished",
		logging.String("output", opts.OutputPath),
		logging.Int("selected", summary.Selected),
		logging.Int("written", summary.Written),
		logging.Int("already_present", summary.Present),
	)
	return summary, nil
}

func selectIDs(path string, sel tasks.Selection) (sink.IDSet, error) {
	reader, err := source.Open(path, source.Columns{ID: tasks.IDColumn, Content: sel.Column})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	ids := make(sink.IDSet)
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		if row.ID != "" && row.Content == sel.Value {
			ids[row.ID] = struct{}{}
		}
	}
}
