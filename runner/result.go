package runner

import (
	"encoding/json"
	"fmt"
	"time"
)

// Result holds the output of a command execution.
type Result struct {
	RunID     string        `json:"run_id"`     // unique identifier for this run
	PID       int           `json:"pid"`        // process id of the child
	Stdout    string        `json:"stdout"`     // captured stdout, including stderr when pipes are joined
	Stderr    string        `json:"stderr"`     // captured stderr, empty when pipes are joined
	Status    ExitStatus    `json:"status"`     // termination status
	StartedAt time.Time     `json:"started_at"` // when the child was spawned
	Duration  time.Duration `json:"duration"`   // spawn to exit
}

// ExitStatus is the termination outcome of a child process: either
// success or a failure carrying a non-zero exit code. The zero value
// is Success.
type ExitStatus struct {
	code int
}

// Succeeded returns the Success status.
func Succeeded() ExitStatus {
	return ExitStatus{}
}

// Failed returns a Failure status carrying code. A code of 0 yields Success.
func Failed(code int) ExitStatus {
	return ExitStatus{code: code}
}

// Success reports whether the process exited with code 0.
func (s ExitStatus) Success() bool {
	return s.code == 0
}

// Code returns the exit code, 0 for Success. A process terminated by a
// signal reports the signal number.
func (s ExitStatus) Code() int {
	return s.code
}

func (s ExitStatus) String() string {
	if s.Success() {
		return "success"
	}
	return fmt.Sprintf("failure(%d)", s.code)
}

type exitStatusJSON struct {
	Success bool `json:"success"`
	Code    int  `json:"code,omitempty"`
}

// MarshalJSON encodes the status as {"success":true} or
// {"success":false,"code":N}.
func (s ExitStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(exitStatusJSON{Success: s.Success(), Code: s.code})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *ExitStatus) UnmarshalJSON(data []byte) error {
	var v exitStatusJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !v.Success && v.Code == 0 {
		return fmt.Errorf("exit status: failure without a code")
	}
	if v.Success {
		*s = Succeeded()
		return nil
	}
	*s = Failed(v.Code)
	return nil
}
