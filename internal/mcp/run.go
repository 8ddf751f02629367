package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/deixis/procrun/internal/metrics"
	"github.com/deixis/procrun/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Command   string            `json:"command" jsonschema:"program name looked up on PATH, or a path starting with . or /"`
	Args      []string          `json:"args,omitempty" jsonschema:"arguments passed to the program in order. Backslashes are removed."`
	Env       map[string]string `json:"env,omitempty" jsonschema:"environment for the program. Replaces the inherited environment entirely when set."`
	Dir       string            `json:"dir,omitempty" jsonschema:"working directory. Relative paths resolve against the server root."`
	JoinPipes *bool             `json:"join_pipes,omitempty" jsonschema:"merge stderr into stdout. Default: from configuration (false)."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.Command == "" {
		return errorResult("command is required")
	}

	cfg, root, r := h.snapshot()

	runReq := cfg.Request(root, params.Command, params.Args)
	if params.Env != nil {
		runReq.Env = params.Env
	}
	if params.Dir != "" {
		runReq.Dir = params.Dir
		if !filepath.IsAbs(runReq.Dir) {
			runReq.Dir = filepath.Join(root, runReq.Dir)
		}
	}
	if params.JoinPipes != nil {
		runReq.JoinPipes = *params.JoinPipes
	}

	res, err := r.Run(h.logger.WithContext(ctx), runReq)
	metrics.Record(res, err)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorResult(fmt.Sprintf("Stopped waiting for command: %v. The command keeps running in the background and its output is discarded.", err))
	case err != nil:
		return errorResult(fmt.Sprintf("Failed to start command: %v", err))
	}

	run := report.FromResult(runReq, res)
	if err := h.store.Save(run); err != nil {
		h.logger.Warn().Err(err).Str("run_id", run.ID).Msg("saving run")
	}

	return textResult(formatRun(run))
}

func formatRun(run *report.Run) string {
	var b strings.Builder

	if run.Status.Success() {
		fmt.Fprintln(&b, "Status: success")
	} else {
		fmt.Fprintf(&b, "Status: failure (exit %d)\n", run.Status.Code())
	}
	fmt.Fprintf(&b, "Run: %s\n", run.ID)
	fmt.Fprintf(&b, "Command: %s\n", run.CommandLine())
	fmt.Fprintf(&b, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintln(&b)

	writeStream(&b, "stdout", run.Stdout)
	if !run.JoinPipes {
		writeStream(&b, "stderr", run.Stderr)
	}

	fmt.Fprintf(&b, "Inspect with proc_inspect(run_id=%q, stream=\"stdout|stderr|all\").\n", run.ID)
	return b.String()
}

func writeStream(b *strings.Builder, name, text string) {
	if text == "" {
		fmt.Fprintf(b, "%s: (empty)\n\n", name)
		return
	}
	fmt.Fprintf(b, "%s:\n", name)
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	fmt.Fprintln(b)
}
