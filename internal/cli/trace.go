package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Session string
	Command string // optional - filter to specific command kind
	Limit   int
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	TraceView
	Stats TraceStats `json:"stats"`
}

func (r TraceResult) String() string {
	return fmt.Sprintf("%s\n\n%d entries, %d ok, %d failed, %d sessions",
		r.TraceView, r.Stats.Total, r.Stats.OK, r.Stats.Failed, r.Stats.Sessions)
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Failed   int `json:"failed"`
	Sessions int `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the command journal",
		Long: `Show journaled commands in sequence order.

Every executed command is journaled with its logical sequence number,
session id, canonical arguments and outcome ("ok" or an error code).

Examples:
  shopstate trace
  shopstate trace --session 01920000-0000-7000-8000-000000000000
  shopstate trace --command checkout.cart --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "filter to one session id")
	cmd.Flags().StringVar(&opts.Command, "command", "", "filter to one command kind (e.g. cart.add)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the last N entries (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Command != "" {
		if _, err := engine.ParseKind(opts.Command); err != nil {
			return WrapExitError(ExitCommandError, "invalid --command", err)
		}
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	cfg, err := resolveConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	entries, err := st.ReadJournal(ctx, store.JournalQuery{
		Session: opts.Session,
		Command: opts.Command,
		Limit:   opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	return formatter(opts.RootOptions, cmd).Success(summarize(entries))
}

func summarize(entries []store.Entry) TraceResult {
	sessions := make(map[string]bool)
	stats := TraceStats{Total: len(entries)}
	for _, e := range entries {
		sessions[e.Session] = true
		if e.Outcome == engine.OutcomeOK {
			stats.OK++
		} else {
			stats.Failed++
		}
	}
	stats.Sessions = len(sessions)
	return TraceResult{TraceView: TraceView{Entries: entries}, Stats: stats}
}
