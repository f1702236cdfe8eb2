package config

import (
	"maps"
	"os"
	"slices"
)

// Command describes the process to run.
//
// A Command is not modified by Run; Run copies what it needs, so the caller
// may reuse or change the value afterwards.
type Command struct {
	// Program is the executable name or path. Names without a path
	// separator are looked up in PATH and then in Options.SearchPaths.
	Program string

	// Args are the arguments passed after the program name.
	Args []string

	// Env holds environment overrides applied on top of the current
	// process environment.
	Env map[string]string

	// Dir is the working directory. If empty, the caller's working
	// directory is used.
	Dir string
}

// Clone returns a deep copy of c.
func (c *Command) Clone() *Command {
	if c == nil {
		return nil
	}

	return &Command{
		Program: c.Program,
		Args:    slices.Clone(c.Args),
		Env:     maps.Clone(c.Env),
		Dir:     c.Dir,
	}
}

// BuildEnvironment returns the environment for the child: the current
// environment with c.Env applied on top. Overrides are appended in key order
// so the result is deterministic; later entries win for duplicate keys.
func BuildEnvironment(c *Command) []string {
	env := os.Environ()

	for _, key := range slices.Sorted(maps.Keys(c.Env)) {
		env = append(env, key+"="+c.Env[key])
	}

	return env
}
