package subprocess

import (
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/procpipe/internal/errors"
)

func TestResolver(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	extra := t.TempDir()
	tool := filepath.Join(extra, "procpipe-test-tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))

	t.Setenv("PATH", t.TempDir())

	t.Run("explicit path", func(t *testing.T) {
		path, err := NewResolver(log, nil).Resolve(tool)
		require.NoError(t, err)
		require.Equal(t, tool, path)
	})

	t.Run("missing explicit path", func(t *testing.T) {
		missing := filepath.Join(extra, "missing")

		_, err := NewResolver(log, nil).Resolve(missing)

		notFound, ok := stderrors.AsType[*errors.ProgramNotFoundError](err)
		require.True(t, ok)
		require.Equal(t, []string{missing}, notFound.SearchedPaths)
	})

	t.Run("search path fallback", func(t *testing.T) {
		path, err := NewResolver(log, []string{t.TempDir(), extra}).Resolve("procpipe-test-tool")
		require.NoError(t, err)
		require.Equal(t, tool, path)
	})

	t.Run("not found anywhere", func(t *testing.T) {
		_, err := NewResolver(log, []string{extra}).Resolve("procpipe-no-such-tool")

		notFound, ok := stderrors.AsType[*errors.ProgramNotFoundError](err)
		require.True(t, ok)
		require.Equal(t, "procpipe-no-such-tool", notFound.Program)
		require.Equal(t, []string{"$PATH", filepath.Join(extra, "procpipe-no-such-tool")}, notFound.SearchedPaths)
	})
}
