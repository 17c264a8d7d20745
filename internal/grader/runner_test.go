package grader

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCommandPass(t *testing.T) {
	result, err := RunCommand(context.Background(), "echo ok", t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusPass {
		t.Errorf("expected status %s, got %s", StatusPass, result.Status)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Output, "ok") {
		t.Errorf("expected output to contain 'ok', got %q", result.Output)
	}
	if !result.Passed() {
		t.Error("expected Passed() to be true")
	}
}

func TestRunCommandFail(t *testing.T) {
	result, err := RunCommand(context.Background(), "echo boom >&2; exit 3", t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusFail {
		t.Errorf("expected status %s, got %s", StatusFail, result.Status)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Output, "boom") {
		t.Errorf("expected stderr in combined output, got %q", result.Output)
	}
	if result.Passed() {
		t.Error("expected Passed() to be false")
	}
}

func TestRunCommandTimeout(t *testing.T) {
	start := time.Now()
	result, err := RunCommand(context.Background(), "sleep 10", t.TempDir(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusTimeout {
		t.Errorf("expected status %s, got %s", StatusTimeout, result.Status)
	}
	if result.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", result.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestRunCommandTimeoutKillsProcessGroup(t *testing.T) {
	// The child sleep is spawned by sh; the group kill must take it down
	// too, otherwise Wait blocks until the grandchild exits.
	start := time.Now()
	result, err := RunCommand(context.Background(), "sleep 30 & wait", t.TempDir(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusTimeout {
		t.Errorf("expected status %s, got %s", StatusTimeout, result.Status)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("group kill did not reap grandchild, took %v", elapsed)
	}
}

func TestRunCommandParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := RunCommand(ctx, "sleep 10", t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusTimeout {
		t.Errorf("expected cancelled run to report %s, got %s", StatusTimeout, result.Status)
	}
}
