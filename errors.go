package procpipe

import "github.com/wagiedev/procpipe/internal/errors"

// Re-export error types from internal package

// ProgramNotFoundError indicates the program could not be located.
type ProgramNotFoundError = errors.ProgramNotFoundError

// SpawnError indicates the operating system could not create the process.
type SpawnError = errors.SpawnError

// ProcessError indicates the process exited unsuccessfully on its own.
type ProcessError = errors.ProcessError

// RelayError indicates a relay stopped because of an I/O failure.
type RelayError = errors.RelayError

// ProcPipeError is the base interface for all procpipe errors.
type ProcPipeError = errors.ProcPipeError

// Re-export sentinel errors from internal package.
var (
	// ErrNilCommand indicates Run was called without a command.
	ErrNilCommand = errors.ErrNilCommand

	// ErrEmptyProgram indicates the command has no program to execute.
	ErrEmptyProgram = errors.ErrEmptyProgram

	// ErrStdinClosed indicates the stdin handle no longer accepts chunks.
	ErrStdinClosed = errors.ErrStdinClosed

	// ErrReceiverClosed indicates the output handle was closed by its owner.
	ErrReceiverClosed = errors.ErrReceiverClosed
)
