package patch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgeval/forgeval/internal/gitrepo"
	"github.com/sourcegraph/go-diff/diff"
)

var (
	// ErrNoChanges indicates the filtered patch is empty: the test ref added
	// nothing for the named files, which signals a misconfigured task.
	ErrNoChanges = errors.New("patch contains no changes")
	// ErrPatchApplyConflict indicates a hunk could not apply because the
	// surrounding context diverged. Reported distinctly from a test failure
	// so operators can tell grading-setup breakage from a wrong fix.
	ErrPatchApplyConflict = errors.New("patch apply conflict")
)

// Extract computes the diff from baseRef to testRef in the full, ungated
// source repository, restricted to the named files when files is non-empty.
func Extract(ctx context.Context, runner gitrepo.CommandRunner, sourceRepo, baseRef, testRef string, files []string) (string, error) {
	out, err := runner.RunInDir(ctx, sourceRepo, "git", "diff", baseRef+".."+testRef)
	if err != nil {
		return "", fmt.Errorf("diff %s..%s in %s: %w", baseRef, testRef, sourceRepo, err)
	}

	patchText := string(out)
	if len(files) > 0 {
		patchText, err = Filter(patchText, files)
		if err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(patchText) == "" {
		return "", fmt.Errorf("%s..%s for %v: %w", baseRef, testRef, files, ErrNoChanges)
	}
	return patchText, nil
}

// Filter retains only the file diffs whose path exactly matches an entry in
// files. Git's a/ and b/ prefixes are stripped before matching.
func Filter(patchText string, files []string) (string, error) {
	if strings.TrimSpace(patchText) == "" {
		return "", nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patchText)).ReadAllFiles()
	if err != nil {
		return "", fmt.Errorf("failed to parse patch: %w", err)
	}

	wanted := make(map[string]bool, len(files))
	for _, f := range files {
		wanted[f] = true
	}

	var kept []*diff.FileDiff
	for _, fd := range fileDiffs {
		if wanted[diffPath(fd)] {
			kept = append(kept, fd)
		}
	}
	if len(kept) == 0 {
		return "", nil
	}

	out, err := diff.PrintMultiFileDiff(kept)
	if err != nil {
		return "", fmt.Errorf("failed to serialize filtered patch: %w", err)
	}
	return string(out), nil
}

// diffPath returns the file's path with git prefixes stripped, preferring
// the new name so renames and additions filter on their final path.
func diffPath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}

// Files lists the paths a patch touches, in patch order.
func Files(patchText string) ([]string, error) {
	if strings.TrimSpace(patchText) == "" {
		return nil, nil
	}
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patchText)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse patch: %w", err)
	}
	paths := make([]string, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		paths = append(paths, diffPath(fd))
	}
	return paths, nil
}

// Apply applies patch text to a working copy with git apply. A failed
// application surfaces ErrPatchApplyConflict; the overwrite-vs-fail policy
// is hard failure, so an agent that touched a test-only file is reported
// rather than silently clobbered.
func Apply(ctx context.Context, runner gitrepo.CommandRunner, workdir, patchText string) error {
	if strings.TrimSpace(patchText) == "" {
		return ErrNoChanges
	}

	tmp, err := os.CreateTemp("", "grading-*.patch")
	if err != nil {
		return fmt.Errorf("failed to stage patch: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(patchText); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage patch: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage patch: %w", err)
	}

	if _, err := runner.RunInDir(ctx, workdir, "git", "apply", "--whitespace=nowarn", tmp.Name()); err != nil {
		return fmt.Errorf("%w in %s: %v", ErrPatchApplyConflict, workdir, err)
	}
	return nil
}

// Checkout clones one branch of the source repository into dest, producing
// the working copy grading runs against.
func Checkout(ctx context.Context, runner gitrepo.CommandRunner, source, branch, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", dest, err)
	}
	if _, err := runner.RunInDir(ctx, "", "git", "clone", "--branch", branch, source, dest); err != nil {
		return fmt.Errorf("clone %s@%s: %w", source, branch, err)
	}
	return nil
}
