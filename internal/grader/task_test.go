package grader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTask(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write task file: %v", err)
	}
	return path
}

func TestLoadTaskDefaults(t *testing.T) {
	path := writeTask(t, `{
		"name": "fix-notifications",
		"sourceRepo": "/srv/repos/webhook-service.git",
		"baselineRef": "notif_baseline",
		"testRef": "notif_test",
		"testFiles": ["tests/test_notifications.py"],
		"testCommand": "pytest tests/test_notifications.py"
	}`)

	task, err := LoadTask(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.TimeoutSeconds != 120 {
		t.Errorf("expected default timeout 120, got %d", task.TimeoutSeconds)
	}
	if task.Weight != 1.0 {
		t.Errorf("expected default weight 1.0, got %v", task.Weight)
	}
	if task.Timeout().Seconds() != 120 {
		t.Errorf("Timeout() = %v, want 120s", task.Timeout())
	}
}

func TestLoadTaskExplicitValues(t *testing.T) {
	path := writeTask(t, `{
		"name": "fix-notifications",
		"sourceRepo": "/srv/repos/webhook-service.git",
		"baselineRef": "notif_baseline",
		"testRef": "notif_test",
		"testCommand": "pytest",
		"timeoutSeconds": 45,
		"weight": 0.8,
		"goldenRef": "notif_golden"
	}`)

	task, err := LoadTask(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.TimeoutSeconds != 45 {
		t.Errorf("expected timeout 45, got %d", task.TimeoutSeconds)
	}
	if task.Weight != 0.8 {
		t.Errorf("expected weight 0.8, got %v", task.Weight)
	}
	if task.GoldenRef != "notif_golden" {
		t.Errorf("expected goldenRef notif_golden, got %q", task.GoldenRef)
	}
}

func TestLoadTaskMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing source repo",
			content: `{"baselineRef": "a", "testRef": "b", "testCommand": "pytest"}`,
			wantErr: "sourceRepo",
		},
		{
			name:    "missing baseline ref",
			content: `{"sourceRepo": "/r", "testRef": "b", "testCommand": "pytest"}`,
			wantErr: "baselineRef",
		},
		{
			name:    "missing test ref",
			content: `{"sourceRepo": "/r", "baselineRef": "a", "testCommand": "pytest"}`,
			wantErr: "testRef",
		},
		{
			name:    "missing test command",
			content: `{"sourceRepo": "/r", "baselineRef": "a", "testRef": "b"}`,
			wantErr: "testCommand",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTask(writeTask(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTaskBadInput(t *testing.T) {
	if _, err := LoadTask(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadTask(writeTask(t, "{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
