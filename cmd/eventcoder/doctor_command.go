package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"eventcoder/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var checkFeeds bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check credentials, directories, the journal, and API reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{
				LLM:   !offline,
				Feeds: checkFeeds && !offline,
			})

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Doctor", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip checks that reach the network")
	cmd.Flags().BoolVar(&checkFeeds, "feeds", false, "Also fetch every configured feed URL")
	return cmd
}
