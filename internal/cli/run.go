package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Input overrides the command source (for testing). Defaults to stdin.
	Input io.Reader
}

// RunReply is one line of run output.
type RunReply struct {
	Line    int            `json:"line"`
	Result  *engine.Result `json:"result,omitempty"`
	Warning *CLIError      `json:"warning,omitempty"`
	Error   *CLIError      `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the engine and execute commands from stdin",
		Long: `Start the single-writer engine loop and execute commands read from stdin,
one JSON object per line. Each reply is written to stdout as one JSON line.
Pending writes are retried every flush_interval and flushed on exit.

Command fields: kind, product_id, quantity, order_id.

Example:
  printf '%s\n' '{"kind":"cart.add","product_id":"3","quantity":2}' \
    '{"kind":"checkout.cart"}' | shopstate run --catalog products.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Store.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	slog.Debug("reading commands", "db", s.Config.Database)
	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Engine.Run(ctx)
	}()

	in := opts.Input
	if in == nil {
		in = cmd.InOrStdin()
	}
	readErr := feedCommands(ctx, s.Engine, in, json.NewEncoder(cmd.OutOrStdout()))

	// Input exhausted: drain and stop the loop.
	s.Engine.Stop()
	err = <-runErr
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	if readErr != nil {
		return WrapExitError(ExitCommandError, "failed to read commands", readErr)
	}

	slog.Info("engine stopped gracefully")
	return nil
}

// feedCommands submits one command per non-blank input line and writes a
// reply for each. Malformed lines get an error reply and do not stop the
// loop.
func feedCommands(ctx context.Context, eng *engine.Engine, in io.Reader, out *json.Encoder) error {
	scanner := bufio.NewScanner(in)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		reply := RunReply{Line: line}
		var c engine.Command
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			reply.Error = &CLIError{Code: "PARSE", Message: fmt.Sprintf("invalid command JSON: %v", err)}
		} else if res, err := eng.Submit(ctx, c); err != nil {
			if errors.Is(err, engine.ErrStopped) || ctx.Err() != nil {
				return nil
			}
			reply.Error = &CLIError{Code: ErrorCode(err), Message: err.Error()}
		} else {
			reply.Result = &res
			if res.Warning != nil {
				reply.Warning = &CLIError{Code: ErrorCode(res.Warning), Message: res.Warning.Error()}
			}
		}

		if err := out.Encode(reply); err != nil {
			return err
		}
	}
	return scanner.Err()
}
