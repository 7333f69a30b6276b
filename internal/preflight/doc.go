// Package preflight provides readiness checks for the completion endpoint,
// the output and journal locations, and configured feeds.
//
// The CLI "eventcoder doctor" command runs RunAll and renders each Result as
// a table row. Checks that need the network are gated by Options so the
// command can run offline.
package preflight
