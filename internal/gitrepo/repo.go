package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forgeval/forgeval/internal/guard"
)

var (
	// ErrRepositoryUnavailable indicates the bare repository is unset,
	// missing, or git itself failed in a way that is not a lookup miss.
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	// ErrNotFound indicates a ref, commit, or path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTimeout indicates a git subprocess exceeded its bounded timeout.
	ErrTimeout = errors.New("git operation timed out")
	// ErrBinaryContent indicates the requested file is not decodable text.
	ErrBinaryContent = errors.New("binary content")
)

// Commit is the metadata for a single commit.
type Commit struct {
	SHA         string    `json:"sha"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"authorEmail"`
	Date        time.Time `json:"date"`
	Message     string    `json:"message"`
}

// Branch is a branch head visible through the guard.
type Branch struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// SearchMatch is one literal-substring hit from SearchCode.
type SearchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Repo provides read access to a bare git repository: branches, commits,
// file content at a ref, diffs, and content search. It never mutates the
// repository. Every ref argument is routed through hidden-ref validation
// before resolution.
type Repo struct {
	path          string
	defaultBranch string
	guard         *guard.Guard
	runner        CommandRunner
}

// New creates an adapter for the bare repository at path.
func New(path, defaultBranch string, g *guard.Guard, runner CommandRunner) *Repo {
	if runner == nil {
		runner = &RealCommandRunner{}
	}
	return &Repo{path: path, defaultBranch: defaultBranch, guard: g, runner: runner}
}

// DefaultBranch returns the configured default branch.
func (r *Repo) DefaultBranch() string { return r.defaultBranch }

// ensure verifies the repository path is configured and present.
func (r *Repo) ensure() error {
	if r.path == "" {
		return fmt.Errorf("%w: bare repository path is not configured", ErrRepositoryUnavailable)
	}
	if info, err := os.Stat(r.path); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRepositoryUnavailable, r.path)
	}
	return nil
}

// ListBranches enumerates branch names minus the hidden set, in git's
// stable refname order.
func (r *Repo) ListBranches(ctx context.Context) ([]Branch, error) {
	if err := r.ensure(); err != nil {
		return nil, err
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", "for-each-ref", "--format=%(refname:short)%1f%(objectname)", "refs/heads/")
	if err != nil {
		return nil, r.infraError("list branches", err)
	}

	var branches []Branch
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, sha, _ := strings.Cut(line, "\x1f")
		if r.guard.IsHidden(name) {
			continue
		}
		branches = append(branches, Branch{Name: name, SHA: sha})
	}
	return branches, nil
}

// BranchExists reports whether a branch head exists in the repository. The
// hidden set is not consulted: this check backs pull-request head
// validation, which runs after guard checks.
func (r *Repo) BranchExists(ctx context.Context, name string) (bool, error) {
	if err := r.ensure(); err != nil {
		return false, err
	}
	_, err := r.runner.RunInDir(ctx, r.path, "git", "rev-parse", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		if exitError(err) {
			return false, nil
		}
		return false, r.infraError("verify branch", err)
	}
	return true, nil
}

// ResolveRef resolves a ref to a commit SHA after hidden-ref validation.
func (r *Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	if err := r.guard.ValidateRef(ref); err != nil {
		return "", err
	}
	if err := r.ensure(); err != nil {
		return "", err
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		if exitError(err) {
			return "", fmt.Errorf("ref %q: %w", ref, ErrNotFound)
		}
		return "", r.infraError("resolve ref", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// FileContents returns the decoded text content of path at ref. Binary
// content is rejected distinctly with ErrBinaryContent.
func (r *Repo) FileContents(ctx context.Context, ref, path string) (string, error) {
	sha, err := r.ResolveRef(ctx, ref)
	if err != nil {
		return "", err
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", "show", sha+":"+path)
	if err != nil {
		if exitError(err) {
			return "", fmt.Errorf("path %q at %q: %w", path, ref, ErrNotFound)
		}
		return "", r.infraError("read file", err)
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return "", fmt.Errorf("path %q at %q: %w", path, ref, ErrBinaryContent)
	}
	return string(out), nil
}

// commit log format: one record per line, fields separated by the ASCII
// unit separator.
const logFormat = "%H%x1f%an%x1f%ae%x1f%aI%x1f%s"

// ListCommits returns commits reachable from ref, newest first, optionally
// restricted to commits touching pathFilter and capped at limit.
func (r *Repo) ListCommits(ctx context.Context, ref, pathFilter string, limit int) ([]Commit, error) {
	sha, err := r.ResolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	args := []string{"log", "--format=" + logFormat}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}
	args = append(args, sha)
	if pathFilter != "" {
		args = append(args, "--", pathFilter)
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", args...)
	if err != nil {
		return nil, r.infraError("list commits", err)
	}
	return parseCommits(string(out))
}

// GetCommit returns the metadata for a single commit.
func (r *Repo) GetCommit(ctx context.Context, sha string) (Commit, error) {
	if err := r.guard.ValidateRef(sha); err != nil {
		return Commit{}, err
	}
	if err := r.ensure(); err != nil {
		return Commit{}, err
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", "show", "--no-patch", "--format="+logFormat, sha)
	if err != nil {
		if exitError(err) {
			return Commit{}, fmt.Errorf("commit %q: %w", sha, ErrNotFound)
		}
		return Commit{}, r.infraError("get commit", err)
	}
	commits, err := parseCommits(string(out))
	if err != nil {
		return Commit{}, err
	}
	if len(commits) == 0 {
		return Commit{}, fmt.Errorf("commit %q: %w", sha, ErrNotFound)
	}
	return commits[0], nil
}

// GetCommitDiff returns the unified diff introduced by a single commit.
func (r *Repo) GetCommitDiff(ctx context.Context, sha string) (string, error) {
	if err := r.guard.ValidateRef(sha); err != nil {
		return "", err
	}
	if err := r.ensure(); err != nil {
		return "", err
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", "show", "--format=", "--patch", sha)
	if err != nil {
		if exitError(err) {
			return "", fmt.Errorf("commit %q: %w", sha, ErrNotFound)
		}
		return "", r.infraError("get commit diff", err)
	}
	return string(out), nil
}

// CompareCommits returns the unified diff between two resolvable refs.
func (r *Repo) CompareCommits(ctx context.Context, base, head string) (string, error) {
	baseSHA, err := r.ResolveRef(ctx, base)
	if err != nil {
		return "", err
	}
	headSHA, err := r.ResolveRef(ctx, head)
	if err != nil {
		return "", err
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", "diff", baseSHA+".."+headSHA)
	if err != nil {
		return "", r.infraError("compare commits", err)
	}
	return string(out), nil
}

// SearchCode performs a literal substring search over tracked file contents
// at ref (default: the configured default branch).
func (r *Repo) SearchCode(ctx context.Context, query, ref string) ([]SearchMatch, error) {
	if ref == "" {
		ref = r.defaultBranch
	}
	sha, err := r.ResolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	out, err := r.runner.RunInDir(ctx, r.path, "git", "grep", "-I", "-n", "-F", "-e", query, sha)
	if err != nil {
		// Exit status 1 means no matches.
		if code := exitCode(err); code == 1 && len(bytes.TrimSpace(out)) == 0 {
			return []SearchMatch{}, nil
		}
		return nil, r.infraError("search code", err)
	}

	var matches []SearchMatch
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		// Lines look like <sha>:<path>:<lineno>:<text>.
		parts := strings.SplitN(line, ":", 4)
		if len(parts) != 4 {
			continue
		}
		lineno, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		matches = append(matches, SearchMatch{Path: parts[1], Line: lineno, Text: parts[3]})
	}
	return matches, nil
}

// infraError keeps timeout errors distinct and folds everything else into
// the unavailable bucket with the failing operation named.
func (r *Repo) infraError(op string, err error) error {
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrRepositoryUnavailable, err)
}

func parseCommits(out string) ([]Commit, error) {
	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\x1f")
		if len(fields) != 5 {
			return nil, fmt.Errorf("unexpected log record: %q", line)
		}
		date, err := time.Parse(time.RFC3339, fields[3])
		if err != nil {
			return nil, fmt.Errorf("unexpected commit date %q: %w", fields[3], err)
		}
		commits = append(commits, Commit{
			SHA:         fields[0],
			Author:      fields[1],
			AuthorEmail: fields[2],
			Date:        date,
			Message:     fields[4],
		})
	}
	return commits, nil
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
