// Package report persists the results of command runs so they can be
// retrieved later by run ID.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/procrun/runner"
)

// ErrNotFound is returned when no run exists for an ID.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves runs.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
}

// Run is the stored record of one command execution.
type Run struct {
	ID        string            `json:"id"`
	Command   string            `json:"command"`
	Args      []string          `json:"args,omitempty"`
	Dir       string            `json:"dir,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	JoinPipes bool              `json:"join_pipes,omitempty"`
	PID       int               `json:"pid"`
	Stdout    string            `json:"stdout"`
	Stderr    string            `json:"stderr"`
	Status    runner.ExitStatus `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
}

// FromResult builds a Run from a request and its result.
func FromResult(req runner.Request, res *runner.Result) *Run {
	return &Run{
		ID:        res.RunID,
		Command:   req.Command,
		Args:      req.Args,
		Dir:       req.Dir,
		Env:       req.Env,
		JoinPipes: req.JoinPipes,
		PID:       res.PID,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		Status:    res.Status,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
}

// CommandLine renders the command and its arguments for display.
func (r *Run) CommandLine() string {
	return strings.Join(append([]string{r.Command}, r.Args...), " ")
}

// Stream selects which capture to read from a run.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
	All    Stream = "all"
)

// ParseStream validates a stream name. Empty means All.
func ParseStream(s string) (Stream, error) {
	switch Stream(s) {
	case "":
		return All, nil
	case Stdout, Stderr, All:
		return Stream(s), nil
	default:
		return "", fmt.Errorf("unknown stream %q (want stdout, stderr or all)", s)
	}
}

// Output returns the capture selected by stream.
func (r *Run) Output(stream Stream) string {
	switch stream {
	case Stdout:
		return r.Stdout
	case Stderr:
		return r.Stderr
	default:
		var b strings.Builder
		b.WriteString(r.Stdout)
		if r.Stdout != "" && r.Stderr != "" && !strings.HasSuffix(r.Stdout, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(r.Stderr)
		return b.String()
	}
}
