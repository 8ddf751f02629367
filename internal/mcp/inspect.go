package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/procrun/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a proc_run result"`
	Stream string `json:"stream,omitempty" jsonschema:"which capture to return: stdout, stderr or all. Default: all."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	stream, err := report.ParseStream(params.Stream)
	if err != nil {
		return errorResult(err.Error())
	}

	run, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	return textResult(formatInspectOutput(run, stream))
}

func formatInspectOutput(run *report.Run, stream report.Stream) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(&b, "Command: %s\n", run.CommandLine())
	if run.Dir != "" {
		fmt.Fprintf(&b, "Dir: %s\n", run.Dir)
	}
	if run.JoinPipes && stream != report.Stdout {
		fmt.Fprintln(&b, "Note: stderr was joined into stdout for this run.")
	}
	fmt.Fprintln(&b)

	out := run.Output(stream)
	if out == "" {
		fmt.Fprintf(&b, "No %s output.\n", stream)
		return b.String()
	}
	b.WriteString(out)
	if !strings.HasSuffix(out, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}
