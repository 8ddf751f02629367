// Package mcp provides the procrun MCP server, registering the run and
// inspect tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/procrun"
	"github.com/deixis/procrun/internal/config"
	"github.com/deixis/procrun/internal/report"
	"github.com/deixis/procrun/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu     sync.RWMutex
	cfg    *config.Config
	root   string // base for relative directories
	runner *runner.Runner

	store  report.Store
	logger zerolog.Logger
}

// NewServer creates an MCP server with all procrun tools registered.
// Relative working directories in tool calls resolve against root.
func NewServer(cfg *config.Config, root string, r *runner.Runner, store report.Store, opts ...ServerOption) *mcp.Server {
	so := serverOptions{logger: zerolog.Nop()}
	for _, o := range opts {
		o(&so)
	}

	h := &handler{
		cfg:    cfg,
		root:   root,
		runner: r,
		store:  store,
		logger: so.logger,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateRootFromClient(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "procrun", Version: procrun.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "proc_run",
		Description: `Run a command, wait for it to exit, and return its stdout, stderr and exit status.

A command starting with "." or "/" is executed as a path; anything else is looked up on PATH.
Backslashes are removed from the command and every argument. A non-zero exit is reported in
the result, not as a tool error. Results are stored for retrieval via proc_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "proc_inspect",
		Description: `Return the captured output of an earlier proc_run.

Use the run_id from a proc_run result. stream selects stdout, stderr or all (default).`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the procrun MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger zerolog.Logger
}

// WithLogger sets the logger attached to every run.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// snapshot returns the current configuration, root and runner.
func (h *handler) snapshot() (*config.Config, string, *runner.Runner) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg, h.root, h.runner
}

// updateRootFromClient queries the client for MCP roots and, if a file
// root is returned, reloads the configuration from it. Called during
// session initialization, before any tool calls.
func (h *handler) updateRootFromClient(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		h.logger.Warn().Err(err).Str("root", u.Path).Msg("ignoring client root")
		return
	}

	h.mu.Lock()
	h.cfg = loaded.Config
	h.root = u.Path
	h.runner = loaded.Config.Runner()
	h.mu.Unlock()

	h.logger.Debug().Str("root", u.Path).Msg("root updated from client")
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
