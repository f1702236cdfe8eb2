package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/procpipe"
	"github.com/wagiedev/procpipe/internal/logging"
)

// stdinBufferSize is the read size used when forwarding the terminal's stdin.
const stdinBufferSize = 4096

// signalExitBase is added to the number of the signal that terminated the
// child, as shells do.
const signalExitBase = 128

type runFlags struct {
	timeout    time.Duration
	grace      time.Duration
	closeStdin bool
	dir        string
	env        []string
}

func (a *app) runCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] -- program [args...]",
		Short: "Run a program, relaying stdin, stdout and stderr",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), flags, args)
		},
	}

	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "cancel the program after this duration")
	cmd.Flags().DurationVar(&flags.grace, "grace", 0, "send SIGTERM on cancellation and SIGKILL after this period")
	cmd.Flags().BoolVar(&flags.closeStdin, "no-stdin", false, "close the program's stdin instead of forwarding")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "working directory of the program")
	cmd.Flags().StringArrayVarP(&flags.env, "env", "e", nil, "extra environment variable KEY=VALUE (repeatable)")

	return cmd
}

func (a *app) run(ctx context.Context, flags runFlags, args []string) error {
	ctx = logging.ContextAttrs(ctx, slog.String("cmd", "run"), slog.Int("pid", os.Getpid()))

	env, err := mergeEnv(a.file.Env, flags.env)
	if err != nil {
		return err
	}

	command := &procpipe.Command{
		Program: args[0],
		Args:    args[1:],
		Env:     env,
		Dir:     flags.dir,
	}

	opts := a.options()
	if flags.grace > 0 {
		opts = append(opts, procpipe.WithKillGracePeriod(flags.grace))
	}

	cancel := procpipe.NewBroadcaster()
	defer cancel.Close()

	stopSignals := cancelOnSignal(cancel)
	defer stopSignals()

	if flags.timeout > 0 {
		timer := time.AfterFunc(flags.timeout, func() {
			a.log.InfoContext(ctx, "Timeout reached, cancelling", "timeout", flags.timeout)
			cancel.Publish()
		})
		defer timer.Stop()
	}

	h, err := procpipe.Run(ctx, command, cancel.Subscribe(), opts...)
	if err != nil {
		return err
	}

	a.log.DebugContext(ctx, "Child started", "run_id", h.ID(), "child_pid", h.Pid())

	if flags.closeStdin {
		_ = h.Stdin.Close()
	} else {
		go forwardStdin(a.stdin, h.Stdin)
	}

	var g errgroup.Group

	g.Go(func() error { return copyOutput(ctx, h.Stdout, a.stdout) })
	g.Go(func() error { return copyOutput(ctx, h.Stderr, a.stderr) })

	copyErr := g.Wait()

	// Both output streams ended, so the child is gone. Stop waiting on our
	// own stdin for it.
	_ = h.Stdin.Close()

	result, waitErr := h.Wait()

	a.log.DebugContext(ctx, "Child finished",
		"exit_code", result.ExitCode,
		"cancelled", result.Cancelled,
		"signal", result.Signal,
		"duration", result.Stopped.Sub(result.Started),
	)

	if copyErr != nil {
		return copyErr
	}

	if relayErr, ok := errors.AsType[*procpipe.RelayError](waitErr); ok {
		return relayErr
	}

	code := exitCode(result)

	if code != 0 {
		return &exitError{code: code}
	}

	return nil
}

// exitCode maps the child's status to the exit code of procpipe itself.
func exitCode(result *procpipe.Result) int {
	switch {
	case result.ExitCode >= 0:
		return result.ExitCode
	case result.Signal != 0:
		return signalExitBase + int(result.Signal)
	default:
		return 1
	}
}

// cancelOnSignal publishes cancellation on SIGINT or SIGTERM. The returned
// function stops listening.
func cancelOnSignal(cancel *procpipe.Broadcaster) func() {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel.Publish()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// forwardStdin sends everything read from r to the child and closes its
// stdin at end of input.
func forwardStdin(r io.Reader, stdin *procpipe.StdinSender) {
	defer func() { _ = stdin.Close() }()

	buf := make([]byte, stdinBufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if sendErr := stdin.Send(string(buf[:n])); sendErr != nil {
				return
			}
		}

		if err != nil {
			return
		}
	}
}

// copyOutput writes every chunk of r to w until the stream ends.
func copyOutput(ctx context.Context, r *procpipe.OutputReceiver, w io.Writer) error {
	for chunk, err := range r.Chunks(ctx) {
		if err != nil {
			return err
		}

		if _, err := io.WriteString(w, chunk); err != nil {
			r.Close()

			return fmt.Errorf("write %s: %w", r.Stream(), err)
		}
	}

	return nil
}

// mergeEnv combines the config file environment with KEY=VALUE flags. Flags
// win over the file.
func mergeEnv(base map[string]string, pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(base)+len(pairs))
	for k, v := range base {
		env[k] = v
	}

	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --env %q, want KEY=VALUE", pair)
		}

		env[k] = v
	}

	return env, nil
}
