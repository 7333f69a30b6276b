// Package main hosts the eventcoder CLI entrypoint and command graph.
//
// The Cobra-based command tree runs classification tasks over article tables,
// clusters topics, ingests feeds, exports relevant rows, and reports journal
// status. It centralizes configuration resolution, credential loading from
// .env, and logger setup so subcommands can focus on wiring the internal
// packages together.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
