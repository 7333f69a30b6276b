package preflight

import (
	"context"

	"eventcoder/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options gates the checks that reach the network.
type Options struct {
	// LLM issues a health-check completion against the configured provider.
	LLM bool
	// Feeds fetches every configured feed URL.
	Feeds bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCredentials(cfg),
		CheckDirectoryAccess("Output directory", cfg.Output.Dir),
	}

	if cfg.Journal.Enabled {
		results = append(results, CheckJournal(cfg.Journal.Path))
	}

	if opts.LLM {
		results = append(results, CheckLLM(ctx, "Completion API", cfg.LLM))
	}

	if opts.Feeds {
		for _, url := range cfg.Feeds.URLs {
			results = append(results, CheckFeed(ctx, url))
		}
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
