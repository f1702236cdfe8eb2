package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/procpipe/internal/broadcast"
	"github.com/wagiedev/procpipe/internal/config"
	"github.com/wagiedev/procpipe/internal/errors"
	"github.com/wagiedev/procpipe/internal/subprocess"
)

// RunProcessTool is the name of the tool registered by ExecServer.
const RunProcessTool = "run_process"

// RunProcessInput is the argument object of the run_process tool.
type RunProcessInput struct {
	Program   string            `json:"program"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Dir       string            `json:"dir,omitempty"`
	Stdin     string            `json:"stdin,omitempty"`
	TimeoutMS int64             `json:"timeout_ms,omitempty"`
}

// RunProcessOutput is the JSON body of a successful run_process result.
type RunProcessOutput struct {
	RunID     string `json:"run_id"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
	Cancelled bool   `json:"cancelled"`
}

// ExecServer is a registry carrying the run_process tool.
type ExecServer struct {
	*Registry

	log     *slog.Logger
	options *config.Options
}

// NewExecServer creates a registry with the run_process tool. Every call
// runs with a copy of options.
func NewExecServer(name, version string, options *config.Options) *ExecServer {
	if options == nil {
		options = &config.Options{}
	}

	s := &ExecServer{
		Registry: NewRegistry(name, version),
		log:      options.LoggerOrNop().With("component", "mcp_exec"),
		options:  options,
	}

	s.AddTool(NewTool(RunProcessTool,
		"Run a program with optional standard input and return its output and exit code.",
		RunProcessSchema(),
	), s.runProcess)

	return s
}

// RunProcessSchema returns the input schema of the run_process tool.
func RunProcessSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"program": {Type: "string", Description: "Program name or path"},
			"args": {
				Type:        "array",
				Description: "Command line arguments",
				Items:       &jsonschema.Schema{Type: "string"},
			},
			"env": {
				Type:                 "object",
				Description:          "Environment variables added to the inherited environment",
				AdditionalProperties: &jsonschema.Schema{Type: "string"},
			},
			"dir":        {Type: "string", Description: "Working directory"},
			"stdin":      {Type: "string", Description: "Text written to standard input before it is closed"},
			"timeout_ms": {Type: "integer", Description: "Kill the process after this many milliseconds"},
		},
		Required: []string{"program"},
	}
}

func (s *ExecServer) runProcess(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in RunProcessInput
	if err := ParseArguments(req, &in); err != nil {
		return ErrorResult(err.Error()), nil
	}

	if in.Program == "" {
		return ErrorResult(errors.ErrEmptyProgram.Error()), nil
	}

	if in.TimeoutMS < 0 {
		return ErrorResult("timeout_ms must not be negative"), nil
	}

	cancel := broadcast.New()
	defer cancel.Close()

	options := *s.options

	h, err := subprocess.Run(ctx, &config.Command{
		Program: in.Program,
		Args:    in.Args,
		Env:     in.Env,
		Dir:     in.Dir,
	}, cancel.Subscribe(), &options)
	if err != nil {
		s.log.Warn("Tool run failed to start", "program", in.Program, "error", err)

		return ErrorResult(err.Error()), nil
	}

	if in.TimeoutMS > 0 {
		timer := time.AfterFunc(time.Duration(in.TimeoutMS)*time.Millisecond, func() {
			cancel.Publish()
		})
		defer timer.Stop()
	}

	if in.Stdin != "" {
		_ = h.Stdin.Send(in.Stdin)
	}

	_ = h.Stdin.Close()

	// The queues are unbounded, so draining one stream at a time cannot
	// stall the other.
	stdout, err := h.Stdout.ReadAll(ctx)
	if err != nil {
		cancel.Publish()
	}

	stderr, _ := h.Stderr.ReadAll(ctx)

	result, waitErr := h.Wait()

	if err := relayFailure(waitErr); err != nil {
		return ErrorResult(err.Error()), nil
	}

	out := RunProcessOutput{
		RunID:     result.ID,
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  result.ExitCode,
		Cancelled: result.Cancelled,
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Tool run finished", "run_id", result.ID, "exit_code", result.ExitCode)

	return TextResult(string(body)), nil
}

// relayFailure returns the first relay error in err. Unsuccessful exits are
// part of a normal tool result.
func relayFailure(err error) error {
	if err == nil {
		return nil
	}

	if relayErr, ok := stderrors.AsType[*errors.RelayError](err); ok {
		return relayErr
	}

	return nil
}
