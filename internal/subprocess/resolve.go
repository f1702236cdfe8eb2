package subprocess

import (
	stderrors "errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wagiedev/procpipe/internal/errors"
)

// Resolver locates the executable for a Command's program.
type Resolver struct {
	log         *slog.Logger
	searchPaths []string
}

// NewResolver creates a Resolver that falls back to searchPaths after PATH.
func NewResolver(log *slog.Logger, searchPaths []string) *Resolver {
	return &Resolver{
		log:         log,
		searchPaths: searchPaths,
	}
}

// Resolve returns the path to execute for program.
//
// A program containing a path separator is used as given and only has to
// exist. Any other name is searched in the following order:
//  1. The system PATH
//  2. Each directory in the configured search paths
//
// Returns ProgramNotFoundError listing every location tried.
func (r *Resolver) Resolve(program string) (string, error) {
	if strings.ContainsRune(program, '/') || strings.ContainsRune(program, filepath.Separator) {
		r.log.Debug("Using explicit program path", "path", program)

		if _, err := os.Stat(program); err == nil {
			return program, nil
		}

		return "", &errors.ProgramNotFoundError{Program: program, SearchedPaths: []string{program}}
	}

	searchedPaths := make([]string, 0, len(r.searchPaths)+1)

	path, err := exec.LookPath(program)
	if err == nil {
		r.log.Debug("Found program in PATH", "program", program, "path", path)

		return path, nil
	}

	if stderrors.Is(err, exec.ErrDot) {
		r.log.Debug("Ignoring program found relative to the working directory", "path", path)
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, dir := range r.searchPaths {
		candidate := filepath.Join(dir, program)
		searchedPaths = append(searchedPaths, candidate)

		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			r.log.Debug("Found program in search path", "path", candidate)

			return candidate, nil
		}
	}

	r.log.Warn("Program not found in any searched paths", "program", program, "searched_paths", searchedPaths)

	return "", &errors.ProgramNotFoundError{Program: program, SearchedPaths: searchedPaths}
}
