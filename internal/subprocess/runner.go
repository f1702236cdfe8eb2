package subprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/procpipe/internal/config"
	"github.com/wagiedev/procpipe/internal/errors"
	"github.com/wagiedev/procpipe/internal/relay"
)

// Run spawns cmd with piped stdio and returns its handles without waiting for
// the process.
//
// A value received on cancel, or ctx becoming done, kills the process. A
// closed cancel channel disarms that source. cancel and options may be nil.
//
// Returns ErrNilCommand or ErrEmptyProgram for an invalid command, and
// SpawnError if the process could not be created; in those cases no
// goroutine is started.
func Run(
	ctx context.Context,
	cmd *config.Command,
	cancel <-chan struct{},
	options *config.Options,
) (*Handles, error) {
	if cmd == nil {
		return nil, errors.ErrNilCommand
	}

	if cmd.Program == "" {
		return nil, errors.ErrEmptyProgram
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if options == nil {
		options = &config.Options{}
	}

	command := cmd.Clone()
	id := ulid.Make().String()
	log := options.LoggerOrNop().With("component", "runner", "run_id", id)

	log.Info("Starting process", "program", command.Program)

	path, err := NewResolver(log, options.SearchPaths).Resolve(command.Program)
	if err != nil {
		return nil, &errors.SpawnError{Program: command.Program, Err: err}
	}

	//nolint:gosec // G204: running a caller-supplied program is the purpose of this package
	c := exec.Command(path, command.Args...)
	c.Env = config.BuildEnvironment(command)
	c.Dir = command.Dir
	configureSysProcAttr(c)

	stdin, stdout, stderr, err := pipes(c)
	if err != nil {
		log.Error("Failed to create pipes", "error", err)

		return nil, &errors.SpawnError{Program: command.Program, Err: err}
	}

	started := time.Now()

	err = c.Start()

	// The child holds its own copy of the read end now. Only the stdin relay
	// keeps a reference to the write end, so cmd.Wait never closes it.
	_ = c.Stdin.(*os.File).Close()

	if err != nil {
		_ = stdin.Close()

		log.Error("Failed to start process", "error", err)

		return nil, &errors.SpawnError{Program: command.Program, Err: err}
	}

	pid := c.Process.Pid
	log = log.With("pid", pid)
	log.Info("Process started")

	h := newHandles(id, pid)
	result := &Result{
		ID:       id,
		Pid:      pid,
		Program:  path,
		Args:     command.Args,
		Started:  started,
		ExitCode: -1,
	}

	stdinCtx, stopStdin := context.WithCancel(context.Background())
	exited := make(chan struct{})
	stdinDone := make(chan struct{})
	chunkSize := options.EffectiveChunkSize()

	// The watcher becomes the only holder of the kill capability.
	w := &watcher{
		log:   log.With("component", "watcher"),
		proc:  newKiller(c.Process),
		grace: options.KillGracePeriod,
		onCancel: func() {
			stopStdin()
			// Unblocks a write stuck on a full pipe.
			_ = stdin.SetWriteDeadline(time.Now())
		},
	}

	var (
		g       errgroup.Group
		outputs sync.WaitGroup
		waitErr error
	)

	g.Go(func() error {
		defer close(stdinDone)

		result.Stdin = relay.Stdin(stdinCtx, log, stdin, h.Stdin.q)

		return result.Stdin.Failure()
	})

	outputs.Add(2)

	g.Go(func() error {
		defer outputs.Done()

		result.Stdout = relay.Output(log, relay.StreamStdout, stdout, h.Stdout.q, chunkSize)

		return result.Stdout.Failure()
	})

	g.Go(func() error {
		defer outputs.Done()

		result.Stderr = relay.Output(log, relay.StreamStderr, stderr, h.Stderr.q, chunkSize)

		return result.Stderr.Failure()
	})

	g.Go(func() error {
		result.Watcher = w.watch(ctx, cancel, exited, stdinDone)

		return nil
	})

	// Reaper. Wait closes the read ends of the output pipes, so it must not
	// run before both output relays are done reading.
	g.Go(func() error {
		outputs.Wait()

		waitErr = c.Wait()
		if c.ProcessState != nil {
			result.ExitCode = c.ProcessState.ExitCode()
			result.Signal = exitSignal(c.ProcessState)
		}

		close(exited)
		log.Debug("Process reaped", "exit_code", result.ExitCode, "signal", result.Signal)

		return nil
	})

	go func() {
		_ = g.Wait()

		stopStdin()

		result.Stopped = time.Now()
		result.Cancelled = result.Watcher.Reason == relay.ReasonKilled

		err := collectErrors(result, waitErr)
		if err != nil {
			log.Warn("Run finished with errors", "error", err)
		} else {
			log.Info("Run finished", "exit_code", result.ExitCode, "cancelled", result.Cancelled)
		}

		h.finish(result, err)
	}()

	return h, nil
}

// pipes creates the three stdio pipes, closing the ones already created if a
// later one fails. The stdin pipe is made by hand and its read end is set as
// c.Stdin, so the write end belongs to the caller alone.
func pipes(c *exec.Cmd) (*os.File, io.ReadCloser, io.ReadCloser, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}

	c.Stdin = stdinR

	stdout, err := c.StdoutPipe()
	if err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()

		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := c.StderrPipe()
	if err != nil {
		_ = stdinR.Close()
		_ = stdinW.Close()
		_ = stdout.Close()

		return nil, nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	return stdinW, stdout, stderr, nil
}

// collectErrors builds the error reported by Handles.Wait.
func collectErrors(result *Result, waitErr error) error {
	errs := make([]error, 0, 4)

	for _, term := range []relay.Termination{result.Stdin, result.Stdout, result.Stderr} {
		if err := term.Failure(); err != nil {
			errs = append(errs, err)
		}
	}

	if waitErr != nil && !result.Cancelled {
		errs = append(errs, &errors.ProcessError{ExitCode: result.ExitCode, Err: waitErr})
	}

	return stderrors.Join(errs...)
}
