// Package runner launches an external program, captures its standard
// output and standard error, and reports how it terminated.
//
// The blocking work (spawn, drain, wait) happens on a dedicated goroutine
// per call, so callers can wait on a context or a channel. Waiting is
// interruptible; the child is not. A caller that stops waiting leaves the
// child to run to completion.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Runner executes commands. The zero value is ready to use.
type Runner struct {
	// Launcher resolves bare command names through PATH. Defaults to
	// DefaultLauncher.
	Launcher string
}

var defaultRunner Runner

// Run executes req with the default Runner.
func Run(ctx context.Context, req Request) (*Result, error) {
	return defaultRunner.Run(ctx, req)
}

// Start launches req with the default Runner.
func Start(ctx context.Context, req Request) *Pending {
	return defaultRunner.Start(ctx, req)
}

// Run executes req and waits for its outcome. A non-zero exit is not an
// error: it is reported through Result.Status. An error means the
// command could not be launched, or ctx ended before the child exited.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	return r.Start(ctx, req).Wait(ctx)
}

// Start launches req on its own goroutine and returns immediately.
// ctx supplies values such as the logger; its cancellation has no effect
// on the child.
func (r *Runner) Start(ctx context.Context, req Request) *Pending {
	p := &Pending{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(p.done)
		p.res, p.err = r.execute(ctx, req)
	}()
	return p
}

// Pending is an execution in flight. Its outcome is delivered exactly once.
type Pending struct {
	done chan struct{}
	res  *Result
	err  error
}

// Done is closed once the outcome is known.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the execution finishes or ctx ends, whichever comes
// first. Every call after completion returns the same outcome.
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-p.done:
		return p.res, p.err
	default:
	}
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runner) launcher() string {
	if r.Launcher != "" {
		return r.Launcher
	}
	return DefaultLauncher
}

// execute performs the blocking spawn, drain and wait sequence.
func (r *Runner) execute(ctx context.Context, req Request) (*Result, error) {
	log := zerolog.Ctx(ctx)
	runID := uuid.New().String()

	path, argv := resolve(r.launcher(), req)

	s, err := openSinks(req.JoinPipes)
	if err != nil {
		return nil, err
	}
	defer s.closeReaders()

	cmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    environ(req.Env),
		Dir:    req.Dir,
		Stdout: s.outW,
		Stderr: s.errW,
	}

	startedAt := time.Now()
	err = cmd.Start()
	s.closeWriters()
	if err != nil {
		log.Warn().Err(err).
			Str("run_id", runID).
			Str("path", path).
			Str("dir", req.Dir).
			Msg("spawn failed")
		return nil, fmt.Errorf("starting %s: %w", req.Command, err)
	}

	log.Debug().
		Str("run_id", runID).
		Str("path", path).
		Int("argc", len(argv)).
		Str("dir", req.Dir).
		Bool("joined", req.JoinPipes).
		Int("pid", cmd.Process.Pid).
		Msg("spawned")

	stdout, stderr := s.drain()

	status := Succeeded()
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("waiting for %s: %w", req.Command, err)
		}
		status = exitStatus(exitErr.ProcessState)
	}
	duration := time.Since(startedAt)

	log.Debug().
		Str("run_id", runID).
		Stringer("status", status).
		Dur("duration", duration).
		Msg("exited")

	return &Result{
		RunID:     runID,
		PID:       cmd.Process.Pid,
		Stdout:    decode(stdout),
		Stderr:    decode(stderr),
		Status:    status,
		StartedAt: startedAt,
		Duration:  duration,
	}, nil
}

// exitStatus maps a terminated process to its ExitStatus. A child killed
// by a signal carries the signal number as its code.
func exitStatus(ps *os.ProcessState) ExitStatus {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Failed(int(ws.Signal()))
	}
	return Failed(ps.ExitCode())
}
