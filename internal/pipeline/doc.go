// Package pipeline runs a classification task over an input table.
//
// Rows move through PENDING, then either skipped (already in the output) or
// IN_FLIGHT and finally WRITTEN once their records are durably appended.
// Only WRITTEN rows join the resume set, which is rebuilt from the output
// table at the start of every run. A cancelled run leaves the interrupted
// row unwritten so the next run picks it up again.
package pipeline
