// Package tasks holds the per-row classification tasks run by the pipeline.
//
// Each task builds its prompts, issues one or more classification calls, and
// shapes the replies into output records with status and error columns. The
// status column separates rows that produced no detections from rows whose
// primary call failed; both still join the resume set.
package tasks
