// Package notifications delivers run events to ntfy.
//
// NewService returns an ntfy-backed Service when a topic URL is configured and
// a no-op otherwise, so callers never check whether notifications are enabled.
package notifications
