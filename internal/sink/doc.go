// Package sink implements the resumable output table.
//
// A Sink owns one CSV file for the duration of a run. The header is written
// exactly once, when the file is created. Each row's records are appended in
// a single synced write, after which the row identifier joins the resume set;
// rerunning a task therefore skips every row already present and repeats at
// most the one row that was in flight when a previous run stopped. An
// advisory lock next to the table keeps two runs from appending to it at once.
package sink
