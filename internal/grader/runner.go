package grader

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// RunStatus classifies one test execution.
type RunStatus string

const (
	// StatusPass means the command exited zero.
	StatusPass RunStatus = "pass"
	// StatusFail means the command exited nonzero.
	StatusFail RunStatus = "fail"
	// StatusTimeout means the command was killed at the deadline. It scores
	// the same as a failure but is reported distinctly for diagnostics.
	StatusTimeout RunStatus = "timeout"
)

// RunResult captures one command execution.
type RunResult struct {
	Status   RunStatus     `json:"status"`
	ExitCode int           `json:"exitCode"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// Passed reports whether the run counts as passing.
func (r *RunResult) Passed() bool {
	return r.Status == StatusPass
}

// RunCommand executes a shell command in dir under a timeout, capturing
// combined output. The command runs in its own process group; on timeout
// the whole group is killed so no orphans survive the run.
func RunCommand(ctx context.Context, command, dir string, timeout time.Duration) (*RunResult, error) {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		// Negative pid addresses the whole process group.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return &RunResult{
			Status:   StatusTimeout,
			ExitCode: -1,
			Output:   output.String(),
			Duration: time.Since(start),
		}, nil
	case err := <-done:
		result := &RunResult{
			Status:   StatusPass,
			Output:   output.String(),
			Duration: time.Since(start),
		}
		if err != nil {
			result.Status = StatusFail
			if ee, ok := err.(*exec.ExitError); ok {
				result.ExitCode = ee.ExitCode()
			} else {
				return nil, fmt.Errorf("command %q: %w", command, err)
			}
		}
		return result, nil
	}
}
