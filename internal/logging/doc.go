// Package logging assembles structured slog loggers for eventcoder.
//
// Console output uses a compact key=value handler, or tint when the writer is
// a terminal. JSON output is available for machine consumption and an
// optional log file receives a copy of every record. Context helpers tag
// records with run, row, task, and call identifiers stamped by the services
// package.
package logging
