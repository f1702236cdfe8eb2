// Package errors defines error types for procpipe.
//
// This package provides structured error types that wrap the different ways a
// run can fail: the process could not be spawned, a relay hit an I/O error, or
// the process exited unsuccessfully. All error types support error unwrapping
// and can be checked using errors.Is, errors.As, and errors.AsType.
package errors
