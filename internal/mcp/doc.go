// Package mcp exposes process execution as a Model Context Protocol tool.
//
// Registry keeps a thread-safe set of tools that can be listed and called
// directly, and can build an SDK server that serves them over a transport.
// ExecServer registers the run_process tool, which runs one command through
// the subprocess runner and reports its output and exit status.
package mcp
