package grader

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TaskSpec describes one grading task: where the untouched source
// repository lives, which refs bound the hidden test patch, and how to run
// the tests.
type TaskSpec struct {
	Name            string   `json:"name"`
	SourceRepo      string   `json:"sourceRepo"`
	BaselineRef     string   `json:"baselineRef"`
	TestRef         string   `json:"testRef"`
	TestFiles       []string `json:"testFiles"`
	TestCommand     string   `json:"testCommand"`
	PreTestCommands []string `json:"preTestCommands,omitempty"`
	TimeoutSeconds  int      `json:"timeoutSeconds,omitempty"`
	Weight          float64  `json:"weight,omitempty"`
	GoldenRef       string   `json:"goldenRef,omitempty"`
}

// LoadTask reads and validates a task file, applying defaults.
func LoadTask(path string) (*TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file %s: %w", path, err)
	}

	var task TaskSpec
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to parse task file %s: %w", path, err)
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("task file %s: %w", path, err)
	}
	return &task, nil
}

// Validate checks required fields and fills defaults.
func (t *TaskSpec) Validate() error {
	if t.SourceRepo == "" {
		return fmt.Errorf("sourceRepo is required")
	}
	if t.BaselineRef == "" {
		return fmt.Errorf("baselineRef is required")
	}
	if t.TestRef == "" {
		return fmt.Errorf("testRef is required")
	}
	if t.TestCommand == "" {
		return fmt.Errorf("testCommand is required")
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = 120
	}
	if t.Weight <= 0 {
		t.Weight = 1.0
	}
	return nil
}

// Timeout returns the test command deadline.
func (t *TaskSpec) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}
