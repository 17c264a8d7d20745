package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/forgeval/forgeval/internal/gitrepo"
	"github.com/forgeval/forgeval/internal/grader"
)

// Report is the machine-readable grading output.
type Report struct {
	Reward    float64           `json:"reward"`
	Subscores []grader.Subscore `json:"subscores"`
}

var loadDotEnv = godotenv.Load

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("gradectl", flag.ExitOnError)
	workdir := fs.String("workdir", "", "working copy to grade (default: fresh baseline checkout)")
	mode := fs.String("mode", "", "validation mode: baseline_fail or golden_pass")
	jsonOut := fs.Bool("json", false, "emit the report as JSON")
	gitTimeout := fs.Duration("git-timeout", 30*time.Second, "timeout for individual git commands")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: gradectl [flags] task.json [task.json...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	_ = loadDotEnv()

	tasks := make([]*grader.TaskSpec, 0, fs.NArg())
	for _, path := range fs.Args() {
		task, err := grader.LoadTask(path)
		if err != nil {
			log.Printf("[gradectl] %v", err)
			return 2
		}
		if task.Name == "" {
			task.Name = filepath.Base(path)
		}
		tasks = append(tasks, task)
	}

	var validation grader.Mode
	if *mode != "" {
		parsed, err := grader.ParseMode(*mode)
		if err != nil {
			log.Printf("[gradectl] %v", err)
			return 2
		}
		validation = parsed
	}

	ctx := context.Background()
	runner := &gitrepo.RealCommandRunner{Timeout: *gitTimeout}
	pipeline := grader.NewPipeline(runner)

	dir := *workdir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "grading-workdir-*")
		if err != nil {
			log.Printf("[gradectl] failed to create workspace: %v", err)
			return 2
		}
		defer os.RemoveAll(tmp)

		dir = filepath.Join(tmp, "repo")
		if err := pipeline.Prepare(ctx, tasks[0], dir); err != nil {
			log.Printf("[gradectl] failed to prepare workspace: %v", err)
			return 2
		}
		log.Printf("[gradectl] Prepared baseline checkout at %s", dir)
	}

	if validation == grader.ModeGoldenPass {
		for _, task := range tasks {
			if err := pipeline.ApplyGolden(ctx, task, dir); err != nil {
				log.Printf("[gradectl] %v", err)
				return 2
			}
		}
		log.Printf("[gradectl] Applied golden solution to %s", dir)
	}

	subs := pipeline.GradeAll(ctx, tasks, dir)
	reward := grader.FromSubscores(subs)

	if *jsonOut {
		if err := json.NewEncoder(out).Encode(Report{Reward: reward, Subscores: subs}); err != nil {
			log.Printf("[gradectl] failed to write report: %v", err)
			return 2
		}
	} else {
		for _, sub := range subs {
			fmt.Fprintf(out, "%-30s weight=%.2f score=%.2f  %s\n", sub.Name, sub.Weight, sub.Score, sub.Detail)
		}
		fmt.Fprintf(out, "reward: %.4f\n", reward)
	}

	if validation == "" {
		return 0
	}
	if validation.ExpectationHolds(reward) {
		fmt.Fprintln(out, "PASS")
		return 0
	}
	fmt.Fprintln(out, "FAIL")
	return 1
}
