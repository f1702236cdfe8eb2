package procpipe

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/procpipe/internal/config"
	internalmcp "github.com/wagiedev/procpipe/internal/mcp"
)

// Re-export MCP SDK types for public API.
type (
	// CallToolResult is the server's response to a tool call.
	CallToolResult = mcp.CallToolResult

	// McpServer is the official SDK server type.
	McpServer = mcp.Server
)

// ExecServer exposes the run_process tool. Tools can be called directly
// with CallTool or served to an MCP client with Serve.
type ExecServer = internalmcp.ExecServer

// RunProcessInput is the argument object of the run_process tool.
type RunProcessInput = internalmcp.RunProcessInput

// RunProcessOutput is the JSON body returned by the run_process tool.
type RunProcessOutput = internalmcp.RunProcessOutput

// RunProcessTool is the name of the process execution tool.
const RunProcessTool = internalmcp.RunProcessTool

// NewExecServer creates an MCP server offering the run_process tool. The
// options apply to every process the tool runs.
//
//	server := procpipe.NewExecServer("procpipe", "1.0.0",
//	    procpipe.WithKillGracePeriod(2*time.Second),
//	)
//	if err := server.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
func NewExecServer(name, version string, opts ...Option) *ExecServer {
	return internalmcp.NewExecServer(name, version, config.Apply(opts))
}

// TextOf concatenates the text content of a tool result.
func TextOf(result *CallToolResult) string {
	return internalmcp.TextOf(result)
}
