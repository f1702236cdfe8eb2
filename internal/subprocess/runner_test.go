//go:build unix

package subprocess

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wagiedev/procpipe/internal/broadcast"
	"github.com/wagiedev/procpipe/internal/config"
	"github.com/wagiedev/procpipe/internal/errors"
	"github.com/wagiedev/procpipe/internal/relay"
)

const waitTimeout = 10 * time.Second

func testOptions() *config.Options {
	return &config.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func shell(script string) *config.Command {
	return &config.Command{Program: "sh", Args: []string{"-c", script}}
}

// waitResult waits for the run to finish, failing the test after waitTimeout.
func waitResult(t *testing.T, h *Handles) (*Result, error) {
	t.Helper()

	select {
	case <-h.Done():
	case <-time.After(waitTimeout):
		t.Fatal("run did not finish in time")
	}

	return h.Wait()
}

// recvUntil receives from r until the concatenated output contains want.
func recvUntil(t *testing.T, r *OutputReceiver, want string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	var sb strings.Builder

	for !strings.Contains(sb.String(), want) {
		chunk, err := r.Recv(ctx)
		require.NoError(t, err, "received so far: %q", sb.String())

		sb.WriteString(chunk)
	}

	return sb.String()
}

func TestRun_EchoRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, err := Run(context.Background(), &config.Command{Program: "cat"}, nil, testOptions())
	require.NoError(t, err)
	require.NotEmpty(t, h.ID())
	require.Positive(t, h.Pid())

	require.NoError(t, h.Stdin.Send("ping\n"))
	require.Equal(t, "ping\n", recvUntil(t, h.Stdout, "ping\n"))

	require.NoError(t, h.Stdin.Close())

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)
	require.False(t, res.Cancelled)
	require.Equal(t, h.ID(), res.ID)
	require.Equal(t, relay.ReasonEOF, res.Stdin.Reason)
	require.Equal(t, relay.ReasonEOF, res.Stdout.Reason)
	require.Equal(t, relay.ReasonEOF, res.Stderr.Reason)
	require.Equal(t, relay.ReasonProcessExited, res.Watcher.Reason)
	require.False(t, res.Stopped.Before(res.Started))

	_, err = h.Stdout.Recv(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.ErrorIs(t, h.Stdin.Send("late"), errors.ErrStdinClosed)
}

func TestRun_StdinBytesArriveInOrder(t *testing.T) {
	h, err := Run(context.Background(), &config.Command{Program: "cat"}, nil, testOptions())
	require.NoError(t, err)

	var want strings.Builder

	for i := range 200 {
		chunk := strings.Repeat(string(rune('a'+i%26)), i%7+1)
		want.WriteString(chunk)
		require.NoError(t, h.Stdin.Send(chunk))
	}

	require.NoError(t, h.Stdin.Close())

	got, err := h.Stdout.ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.String(), got)

	_, err = waitResult(t, h)
	require.NoError(t, err)
}

func TestRun_StdoutAndStderrAreSeparate(t *testing.T) {
	h, err := Run(context.Background(), shell(`printf out; printf err >&2`), nil, testOptions())
	require.NoError(t, err)
	require.NoError(t, h.Stdin.Close())

	stdout, err := h.Stdout.ReadAll(context.Background())
	require.NoError(t, err)

	stderr, err := h.Stderr.ReadAll(context.Background())
	require.NoError(t, err)

	require.Equal(t, "out", stdout)
	require.Equal(t, "err", stderr)

	_, err = waitResult(t, h)
	require.NoError(t, err)
}

func TestRun_LossyDecoding(t *testing.T) {
	h, err := Run(context.Background(), shell(`printf 'caf\303\251 \377\n'`), nil, testOptions())
	require.NoError(t, err)
	require.NoError(t, h.Stdin.Close())

	got, err := h.Stdout.ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "café �\n", got)

	_, err = waitResult(t, h)
	require.NoError(t, err)
}

func TestRun_MultiByteOutputSurvivesChunking(t *testing.T) {
	payload := "x" + strings.Repeat("é€😀", 300)

	cmd := shell(`printf '%s' "$PAYLOAD"`)
	cmd.Env = map[string]string{"PAYLOAD": payload}

	h, err := Run(context.Background(), cmd, nil, testOptions())
	require.NoError(t, err)
	require.NoError(t, h.Stdin.Close())

	got, err := h.Stdout.ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, payload, got)

	_, err = waitResult(t, h)
	require.NoError(t, err)
}

func TestRun_EnvAndDir(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cmd := shell(`printf '%s|' "$PROCPIPE_FOO"; pwd -P`)
	cmd.Env = map[string]string{"PROCPIPE_FOO": "bar"}
	cmd.Dir = dir

	h, err := Run(context.Background(), cmd, nil, testOptions())
	require.NoError(t, err)
	require.NoError(t, h.Stdin.Close())

	got, err := h.Stdout.ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "bar|"+dir+"\n", got)

	_, err = waitResult(t, h)
	require.NoError(t, err)
}

func TestRun_NonZeroExit(t *testing.T) {
	h, err := Run(context.Background(), shell(`exit 3`), nil, testOptions())
	require.NoError(t, err)
	require.NoError(t, h.Stdin.Close())

	res, err := waitResult(t, h)
	require.Error(t, err)
	require.Equal(t, 3, res.ExitCode)

	procErr, ok := stderrors.AsType[*errors.ProcessError](err)
	require.True(t, ok)
	require.Equal(t, 3, procErr.ExitCode)
}

func TestRun_CancellationKillsProcess(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := broadcast.New()

	h, err := Run(context.Background(), &config.Command{Program: "sleep", Args: []string{"60"}}, b.Subscribe(), testOptions())
	require.NoError(t, err)

	time.AfterFunc(50*time.Millisecond, func() { b.Publish() })

	res, err := waitResult(t, h)
	require.NoError(t, err, "cancellation is not a run failure")
	require.True(t, res.Cancelled)
	require.Equal(t, -1, res.ExitCode)
	require.Equal(t, relay.ReasonKilled, res.Watcher.Reason)
	require.Equal(t, relay.ReasonCancelled, res.Stdin.Reason)
	require.Equal(t, relay.ReasonEOF, res.Stdout.Reason)

	require.ErrorIs(t, syscall.Kill(res.Pid, 0), syscall.ESRCH)
	require.ErrorIs(t, h.Stdin.Send("late"), errors.ErrStdinClosed)

	_, err = h.Stdout.Recv(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestRun_CancellationKillsGrandchildren(t *testing.T) {
	b := broadcast.New()

	// The backgrounded sleep inherits stdout and would keep the stream open.
	h, err := Run(context.Background(), shell(`sleep 60 & printf ready; wait`), b.Subscribe(), testOptions())
	require.NoError(t, err)

	recvUntil(t, h.Stdout, "ready")

	start := time.Now()

	b.Publish()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run not finished after cancellation")
	}

	res, err := h.Wait()
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.Equal(t, syscall.SIGKILL, res.Signal)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_GraceStopsGroupWithoutEscalation(t *testing.T) {
	b := broadcast.New()
	opts := testOptions()
	opts.KillGracePeriod = 5 * time.Second

	h, err := Run(context.Background(), shell(`sleep 60 & printf ready; wait`), b.Subscribe(), opts)
	require.NoError(t, err)

	recvUntil(t, h.Stdout, "ready")

	start := time.Now()

	b.Publish()

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.Equal(t, syscall.SIGTERM, res.Signal)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_CancellationAfterNaturalExit(t *testing.T) {
	b := broadcast.New()

	h, err := Run(context.Background(), shell(`exit 0`), b.Subscribe(), testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	_, err = h.Stdout.ReadAll(ctx)
	require.NoError(t, err)
	_, err = h.Stderr.ReadAll(ctx)
	require.NoError(t, err)

	// Outputs are done but stdin is still open, so the run is not.
	select {
	case <-h.Done():
		t.Fatal("run finished while stdin was still open")
	case <-time.After(200 * time.Millisecond):
	}

	b.Publish()

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.False(t, res.Cancelled)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, relay.ReasonCancelled, res.Watcher.Reason)
	require.Equal(t, relay.ReasonCancelled, res.Stdin.Reason)
	require.ErrorIs(t, h.Stdin.Send("late"), errors.ErrStdinClosed)
}

func TestRun_StdinSurvivesReaping(t *testing.T) {
	h, err := Run(context.Background(), shell(`exit 0`), nil, testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	_, err = h.Stdout.ReadAll(ctx)
	require.NoError(t, err)

	// Sending after the process was reaped hits a broken pipe, not a pipe
	// closed underneath the relay.
	require.NoError(t, h.Stdin.Send("after exit\n"))
	require.NoError(t, h.Stdin.Close())

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.NotErrorIs(t, res.Stdin.Err, os.ErrClosed)
	require.Equal(t, relay.ReasonProcessExited, res.Watcher.Reason)
}

func TestRun_DoubleCancellationIsIdempotent(t *testing.T) {
	b := broadcast.New()

	h, err := Run(context.Background(), &config.Command{Program: "sleep", Args: []string{"60"}}, b.Subscribe(), testOptions())
	require.NoError(t, err)

	require.True(t, b.Publish())
	require.False(t, b.Publish())

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.Equal(t, relay.ReasonKilled, res.Watcher.Reason)
}

func TestRun_ContextCancellationKillsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	h, err := Run(ctx, &config.Command{Program: "sleep", Args: []string{"60"}}, nil, testOptions())
	require.NoError(t, err)

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
}

func TestRun_ClosedSubscriptionDisarmsWatcher(t *testing.T) {
	b := broadcast.New()

	h, err := Run(context.Background(), shell(`sleep 0.2; printf done`), b.Subscribe(), testOptions())
	require.NoError(t, err)

	b.Close()
	require.NoError(t, h.Stdin.Close())

	got, err := h.Stdout.ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "done", got)

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.False(t, res.Cancelled)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, relay.ReasonDisarmed, res.Watcher.Reason)
}

func TestRun_DroppedStdoutDoesNotDeadlock(t *testing.T) {
	h, err := Run(context.Background(), &config.Command{Program: "yes"}, nil, testOptions())
	require.NoError(t, err)

	h.Stdout.Close()

	_, err = h.Stdout.Recv(context.Background())
	require.ErrorIs(t, err, errors.ErrReceiverClosed)

	// The stdin relay and the watcher keep working after the drop.
	require.NoError(t, h.Stdin.Send("ignored\n"))
	require.NoError(t, h.Stdin.Close())

	res, _ := waitResult(t, h)
	require.Equal(t, relay.ReasonReceiverDropped, res.Stdout.Reason)
	require.Equal(t, relay.ReasonProcessExited, res.Watcher.Reason)
}

func TestRun_GracePeriodAllowsCleanShutdown(t *testing.T) {
	b := broadcast.New()
	opts := testOptions()
	opts.KillGracePeriod = 5 * time.Second

	script := `trap 'printf bye; exit 0' TERM; printf ready; while :; do sleep 0.05; done`

	h, err := Run(context.Background(), shell(script), b.Subscribe(), opts)
	require.NoError(t, err)

	recvUntil(t, h.Stdout, "ready")
	b.Publish()

	require.Equal(t, "bye", recvUntil(t, h.Stdout, "bye"))

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.Equal(t, 0, res.ExitCode)
}

func TestRun_GracePeriodEscalatesToKill(t *testing.T) {
	b := broadcast.New()
	opts := testOptions()
	opts.KillGracePeriod = 100 * time.Millisecond

	script := `trap '' TERM; printf ready; while :; do sleep 0.05; done`

	h, err := Run(context.Background(), shell(script), b.Subscribe(), opts)
	require.NoError(t, err)

	recvUntil(t, h.Stdout, "ready")
	b.Publish()

	res, err := waitResult(t, h)
	require.NoError(t, err)
	require.True(t, res.Cancelled)
	require.Equal(t, -1, res.ExitCode)
}

func TestRun_ChunkSizeOption(t *testing.T) {
	opts := testOptions()
	opts.ChunkSize = 4

	h, err := Run(context.Background(), shell(`printf 0123456789`), nil, opts)
	require.NoError(t, err)
	require.NoError(t, h.Stdin.Close())

	var chunks []string

	for chunk, err := range h.Stdout.Chunks(context.Background()) {
		require.NoError(t, err)
		require.LessOrEqual(t, len(chunk), 4)

		chunks = append(chunks, chunk)
	}

	require.Equal(t, "0123456789", strings.Join(chunks, ""))

	_, err = waitResult(t, h)
	require.NoError(t, err)
}

func TestRun_SpawnFailureStartsNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("missing program", func(t *testing.T) {
		h, err := Run(context.Background(), &config.Command{Program: "/nonexistent/procpipe-test"}, nil, testOptions())
		require.Nil(t, h)

		spawnErr, ok := stderrors.AsType[*errors.SpawnError](err)
		require.True(t, ok)
		require.Equal(t, "/nonexistent/procpipe-test", spawnErr.Program)

		_, ok = stderrors.AsType[*errors.ProgramNotFoundError](err)
		require.True(t, ok)
	})

	t.Run("not executable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "script.sh")
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o600))

		h, err := Run(context.Background(), &config.Command{Program: path}, nil, testOptions())
		require.Nil(t, h)

		_, ok := stderrors.AsType[*errors.SpawnError](err)
		require.True(t, ok)
		require.ErrorIs(t, err, os.ErrPermission)
	})
}

func TestRun_InvalidCommand(t *testing.T) {
	_, err := Run(context.Background(), nil, nil, testOptions())
	require.ErrorIs(t, err, errors.ErrNilCommand)

	_, err = Run(context.Background(), &config.Command{}, nil, testOptions())
	require.ErrorIs(t, err, errors.ErrEmptyProgram)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Run(ctx, &config.Command{Program: "cat"}, nil, testOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_WaitIsRepeatable(t *testing.T) {
	h, err := Run(context.Background(), shell(`exit 0`), nil, nil)
	require.NoError(t, err)
	require.NoError(t, h.Stdin.Close())

	first, err := waitResult(t, h)
	require.NoError(t, err)

	second, err := h.Wait()
	require.NoError(t, err)
	require.Same(t, first, second)
}
