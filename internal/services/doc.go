// Package services defines shared utilities consumed by the pipeline, the task
// implementations, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, row IDs, task and call names for
//     logging and the call journal.
//   - Structured error markers plus the Wrap helper that separate fatal
//     pre-loop failures from recoverable per-call failures.
//
// The completion client lives in the llm subpackage.
package services
