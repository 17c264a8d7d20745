package grader

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/forgeval/forgeval/internal/gitrepo"
	"github.com/forgeval/forgeval/internal/patch"
)

// timePrecision rounds run durations in logs and details.
const timePrecision = 10 * time.Millisecond

// Pipeline grades working copies against tasks. All git work goes through
// the injected runner so tests can observe the exact invocations.
type Pipeline struct {
	runner gitrepo.CommandRunner
}

// NewPipeline creates a grading pipeline.
func NewPipeline(runner gitrepo.CommandRunner) *Pipeline {
	return &Pipeline{runner: runner}
}

// Prepare clones the task's baseline branch into workdir, producing the
// working copy grading runs against.
func (p *Pipeline) Prepare(ctx context.Context, task *TaskSpec, workdir string) error {
	return patch.Checkout(ctx, p.runner, task.SourceRepo, task.BaselineRef, workdir)
}

// ApplyGolden applies the reference solution (the baseline-to-golden diff)
// to the working copy. Used by golden_pass validation; the golden diff is
// not restricted to the task's test files.
func (p *Pipeline) ApplyGolden(ctx context.Context, task *TaskSpec, workdir string) error {
	if task.GoldenRef == "" {
		return fmt.Errorf("task %s has no goldenRef", task.Name)
	}
	patchText, err := patch.Extract(ctx, p.runner, task.SourceRepo, task.BaselineRef, task.GoldenRef, nil)
	if err != nil {
		return fmt.Errorf("golden diff for %s: %w", task.Name, err)
	}
	return patch.Apply(ctx, p.runner, workdir, patchText)
}

// Grade runs one task against a working copy: extract the hidden test diff
// from the source repository, overlay it onto the working copy, run any
// setup commands, then run the test command under the task's deadline.
// Setup breakage, patch conflicts and empty patches all score 0.0 with a
// diagnostic detail instead of aborting, so sibling tasks still grade.
func (p *Pipeline) Grade(ctx context.Context, task *TaskSpec, workdir string) Subscore {
	sub := Subscore{Name: task.Name, Weight: task.Weight}

	log.Printf("[grader] task %s: extracting %s..%s", task.Name, task.BaselineRef, task.TestRef)
	patchText, err := patch.Extract(ctx, p.runner, task.SourceRepo, task.BaselineRef, task.TestRef, task.TestFiles)
	if err != nil {
		sub.Detail = fmt.Sprintf("test patch extraction failed: %v", err)
		log.Printf("[grader] task %s: %s", task.Name, sub.Detail)
		return sub
	}

	if err := patch.Apply(ctx, p.runner, workdir, patchText); err != nil {
		sub.Detail = fmt.Sprintf("test patch rejected: %v", err)
		log.Printf("[grader] task %s: %s", task.Name, sub.Detail)
		return sub
	}

	for _, setup := range task.PreTestCommands {
		result, err := RunCommand(ctx, setup, workdir, task.Timeout())
		if err != nil {
			sub.Detail = fmt.Sprintf("setup command %q: %v", setup, err)
			log.Printf("[grader] task %s: %s", task.Name, sub.Detail)
			return sub
		}
		if !result.Passed() {
			sub.Detail = fmt.Sprintf("setup command %q %s (exit %d): %s",
				setup, result.Status, result.ExitCode, tail(result.Output, 40))
			log.Printf("[grader] task %s: setup command %q %s", task.Name, setup, result.Status)
			return sub
		}
	}

	log.Printf("[grader] task %s: running %q (timeout %s)", task.Name, task.TestCommand, task.Timeout())
	result, err := RunCommand(ctx, task.TestCommand, workdir, task.Timeout())
	if err != nil {
		sub.Detail = fmt.Sprintf("test command: %v", err)
		log.Printf("[grader] task %s: %s", task.Name, sub.Detail)
		return sub
	}

	if result.Passed() {
		sub.Score = 1.0
	}
	sub.Detail = fmt.Sprintf("%s (exit %d, %s): %s",
		result.Status, result.ExitCode, result.Duration.Round(timePrecision), tail(result.Output, 40))
	log.Printf("[grader] task %s: %s in %s (score %.1f)", task.Name, result.Status, result.Duration.Round(timePrecision), sub.Score)
	return sub
}

// GradeAll grades every task against the same working copy. A task that
// fails to grade contributes a zero sub-score; it never stops the others.
func (p *Pipeline) GradeAll(ctx context.Context, tasks []*TaskSpec, workdir string) []Subscore {
	subs := make([]Subscore, 0, len(tasks))
	for _, task := range tasks {
		subs = append(subs, p.Grade(ctx, task, workdir))
	}
	return subs
}

// tail keeps the last n lines of command output for sub-score details.
func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return "(no output)"
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
