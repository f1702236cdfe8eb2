package errors

import (
	"errors"
	"fmt"
)

// ProcPipeError is the base interface for all procpipe errors.
type ProcPipeError interface {
	error
	IsProcPipeError() bool
}

// Compile-time verification that all error types implement ProcPipeError.
var (
	_ ProcPipeError = (*ProgramNotFoundError)(nil)
	_ ProcPipeError = (*SpawnError)(nil)
	_ ProcPipeError = (*ProcessError)(nil)
	_ ProcPipeError = (*RelayError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNilCommand indicates Run was called without a command.
	ErrNilCommand = errors.New("command must not be nil")

	// ErrEmptyProgram indicates the command has no program to execute.
	ErrEmptyProgram = errors.New("command program must not be empty")

	// ErrStdinClosed indicates the stdin handle no longer accepts chunks,
	// either because it was closed or because its relay has stopped.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrReceiverClosed indicates the output handle was closed by its owner.
	ErrReceiverClosed = errors.New("receiver closed")
)

// ProgramNotFoundError indicates the program could not be located.
type ProgramNotFoundError struct {
	Program       string
	SearchedPaths []string
}

func (e *ProgramNotFoundError) Error() string {
	return fmt.Sprintf("program %q not found in: %v", e.Program, e.SearchedPaths)
}

// IsProcPipeError implements ProcPipeError.
func (e *ProgramNotFoundError) IsProcPipeError() bool { return true }

// SpawnError indicates the operating system could not create the process.
// No relay is started when Run returns a SpawnError.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsProcPipeError implements ProcPipeError.
func (e *SpawnError) IsProcPipeError() bool { return true }

// ProcessError indicates the process exited unsuccessfully on its own.
type ProcessError struct {
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("process failed (exit %d)", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsProcPipeError implements ProcPipeError.
func (e *ProcessError) IsProcPipeError() bool { return true }

// RelayError indicates a relay stopped because of an I/O failure rather than
// a clean end of stream.
type RelayError struct {
	Stream string
	Op     string
	Err    error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("%s relay %s: %v", e.Stream, e.Op, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// IsProcPipeError implements ProcPipeError.
func (e *RelayError) IsProcPipeError() bool { return true }
