package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner is an interface for executing git commands.
// This abstraction allows us to mock command execution in tests.
type CommandRunner interface {
	// RunInDir executes a command in a specific directory and returns stdout.
	RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// RealCommandRunner is the production implementation using os/exec. Every
// invocation carries a bounded timeout so a stuck subprocess surfaces
// ErrTimeout instead of hanging.
type RealCommandRunner struct {
	Timeout time.Duration
}

// RunInDir executes a command in a specific directory.
func (r *RealCommandRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s %s after %v", ErrTimeout, name, strings.Join(args, " "), timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return stdout.Bytes(), fmt.Errorf("%s %s failed: %w: %s", name, strings.Join(args, " "), err, detail)
	}
	return stdout.Bytes(), nil
}

// MockCall represents a single command invocation.
type MockCall struct {
	Dir  string
	Name string
	Args []string
}

// MockCommandRunner is a test implementation that returns scripted responses.
type MockCommandRunner struct {
	// RunFunc is called when RunInDir is invoked.
	RunFunc func(dir, name string, args ...string) ([]byte, error)

	// Calls tracks all command invocations.
	Calls []MockCall
}

// RunInDir records the call and executes the mock function.
func (m *MockCommandRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.Calls = append(m.Calls, MockCall{Dir: dir, Name: name, Args: args})
	if m.RunFunc != nil {
		return m.RunFunc(dir, name, args...)
	}
	return []byte(""), nil
}

// exitError reports whether err wraps a subprocess exit failure, as opposed
// to a timeout or a spawn failure.
func exitError(err error) bool {
	var ee *exec.ExitError
	return errors.As(err, &ee)
}
