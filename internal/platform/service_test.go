package platform

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forgeval/forgeval/internal/codehost"
	"github.com/forgeval/forgeval/internal/config"
	"github.com/forgeval/forgeval/internal/gitrepo"
	"github.com/forgeval/forgeval/internal/guard"
	"github.com/forgeval/forgeval/internal/tracker"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func hostDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "repo.json", `{
		"owner": "acme-corp",
		"name": "webhook-service",
		"defaultBranch": "main"
	}`)
	writeFile(t, dir, "issues.json", `[
		{"number": 42, "title": "Notifications endpoint returns 500", "state": "open"}
	]`)
	return dir
}

func trackerDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "teams.json", `[{"id": "team-1", "key": "ENG", "name": "Engineering"}]`)
	writeFile(t, dir, "users.json", `[{"id": "user-1", "name": "Sam Rivera"}]`)
	writeFile(t, dir, "workflow_states.json", `[
		{"id": "state-backlog", "name": "Backlog", "type": "backlog", "teamId": "team-1"},
		{"id": "state-done", "name": "Done", "type": "completed", "teamId": "team-1"}
	]`)
	writeFile(t, dir, "issues.json", `[
		{"id": "issue-1", "identifier": "ENG-1", "number": 1, "title": "Fix notifications",
		 "teamId": "team-1", "stateId": "state-backlog"}
	]`)
	writeFile(t, dir, "viewer.json", `{"id": "user-1", "name": "Sam Rivera"}`)
	return dir
}

// testService assembles a service around a mock git runner so no handler
// spawns a real subprocess.
func testService(t *testing.T, readOnly bool, runner gitrepo.CommandRunner) *Service {
	t.Helper()
	cfg := &config.Config{
		RepoOwner:     "acme-corp",
		RepoName:      "webhook-service",
		DefaultBranch: "main",
		BareRepoPath:  t.TempDir(),
		GitHubDataDir: hostDataDir(t),
		LinearDataDir: trackerDataDir(t),
		ReadOnly:      readOnly,
	}

	g := guard.New(cfg.RepoOwner, cfg.RepoName, []string{"notif_test", "notif_golden"})
	host, err := codehost.Load(cfg.GitHubDataDir)
	if err != nil {
		t.Fatalf("failed to load code host data: %v", err)
	}
	tr, err := tracker.Load(cfg.LinearDataDir)
	if err != nil {
		t.Fatalf("failed to load tracker data: %v", err)
	}
	if runner == nil {
		runner = &gitrepo.MockCommandRunner{}
	}

	return &Service{
		cfg:      cfg,
		guard:    g,
		tracker:  tr,
		host:     host,
		repo:     gitrepo.New(cfg.BareRepoPath, cfg.DefaultBranch, g, runner),
		Activity: &ActivityLog{},
		readOnly: readOnly,
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func realExitError(t *testing.T) error {
	t.Helper()
	err := exec.Command("false").Run()
	if err == nil {
		t.Fatal("expected 'false' to exit nonzero")
	}
	return err
}

func TestRegisterCatalog(t *testing.T) {
	s := testService(t, false, nil)
	s.Register(mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v0"}, nil))

	tools := s.Tools()
	if len(tools) != 32 {
		t.Errorf("expected 32 tools, got %d: %v", len(tools), tools)
	}
	for _, name := range []string{"get_repository", "create_pull_request", "linear_get_viewer", "linear_update_issue"} {
		found := false
		for _, tool := range tools {
			if tool == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestRegisterCatalogReadOnly(t *testing.T) {
	s := testService(t, true, nil)
	s.Register(mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v0"}, nil))

	for _, tool := range s.Tools() {
		switch tool {
		case "create_issue", "update_issue", "create_issue_comment", "create_pull_request",
			"linear_create_issue", "linear_update_issue", "linear_create_comment":
			t.Errorf("mutating tool %s registered in read-only mode", tool)
		}
	}
	if len(s.Tools()) != 25 {
		t.Errorf("expected 25 read-only tools, got %d", len(s.Tools()))
	}
}

func TestScopeDenied(t *testing.T) {
	s := testService(t, false, nil)

	res, _, err := s.handleGetIssue(context.Background(), nil, GetIssueParams{
		RepoScope: RepoScope{Owner: "acme-corp", Repo: "other-repo"},
		Number:    42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for out-of-scope repo")
	}
	if text := resultText(t, res); !strings.Contains(text, "repo_access_denied") {
		t.Errorf("expected repo_access_denied code, got %q", text)
	}
}

func TestListBranchesHidesGradingRefs(t *testing.T) {
	runner := &gitrepo.MockCommandRunner{
		RunFunc: func(dir, name string, args ...string) ([]byte, error) {
			return []byte("main\x1faaa\nnotif_baseline\x1fbbb\nnotif_test\x1fccc\nnotif_golden\x1fddd\n"), nil
		},
	}
	s := testService(t, false, runner)

	res, _, err := s.handleListBranches(context.Background(), nil, ListBranchesParams{
		RepoScope: RepoScope{Owner: "acme-corp", Repo: "webhook-service"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, res)
	if strings.Contains(text, "notif_test") || strings.Contains(text, "notif_golden") {
		t.Errorf("hidden refs leaked into listing: %s", text)
	}
	if !strings.Contains(text, "notif_baseline") {
		t.Errorf("visible branch missing from listing: %s", text)
	}
}

func TestGetBranchHiddenRef(t *testing.T) {
	runner := &gitrepo.MockCommandRunner{}
	s := testService(t, false, runner)

	res, _, err := s.handleGetBranch(context.Background(), nil, GetBranchParams{
		RepoScope: RepoScope{Owner: "acme-corp", Repo: "webhook-service"},
		Branch:    "notif_golden",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for hidden ref")
	}
	if text := resultText(t, res); !strings.Contains(text, "branch_hidden") {
		t.Errorf("expected branch_hidden code, got %q", text)
	}
	if len(runner.Calls) != 0 {
		t.Errorf("runner invoked %d times for a hidden ref", len(runner.Calls))
	}
}

func TestCreatePullRequestHeadChecks(t *testing.T) {
	exitErr := realExitError(t)
	runner := &gitrepo.MockCommandRunner{
		RunFunc: func(dir, name string, args ...string) ([]byte, error) {
			return nil, exitErr
		},
	}
	s := testService(t, false, runner)
	scope := RepoScope{Owner: "acme-corp", Repo: "webhook-service"}

	res, _, err := s.handleCreatePullRequest(context.Background(), nil, CreatePullRequestParams{
		RepoScope: scope, Title: "Fix", Head: "feature/fix", Base: "main",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "head_branch_not_found") {
		t.Errorf("expected head_branch_not_found, got %q", text)
	}

	// A hidden head is rejected before any git subprocess runs.
	before := len(runner.Calls)
	res, _, err = s.handleCreatePullRequest(context.Background(), nil, CreatePullRequestParams{
		RepoScope: scope, Title: "Fix", Head: "notif_test", Base: "main",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "branch_hidden") {
		t.Errorf("expected branch_hidden, got %q", text)
	}
	if len(runner.Calls) != before {
		t.Errorf("runner invoked for a hidden head")
	}
}

func TestCreatePullRequest(t *testing.T) {
	runner := &gitrepo.MockCommandRunner{
		RunFunc: func(dir, name string, args ...string) ([]byte, error) {
			return []byte("abc123\n"), nil
		},
	}
	s := testService(t, false, runner)

	res, _, err := s.handleCreatePullRequest(context.Background(), nil, CreatePullRequestParams{
		RepoScope:   RepoScope{Owner: "acme-corp", Repo: "webhook-service"},
		Title:       "Fix notifications endpoint",
		Head:        "feature/fix-notifications",
		Base:        "main",
		IssueNumber: 42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	text := resultText(t, res)
	// Numbering continues past the highest static issue number.
	if !strings.Contains(text, `"number": 43`) {
		t.Errorf("expected PR number 43, got %s", text)
	}
	if s.Activity.Len() != 1 {
		t.Errorf("expected 1 activity entry, got %d", s.Activity.Len())
	}
}

func TestMutationsReadOnly(t *testing.T) {
	s := testService(t, true, nil)
	scope := RepoScope{Owner: "acme-corp", Repo: "webhook-service"}

	res, _, err := s.handleCreateIssue(context.Background(), nil, CreateIssueParams{
		RepoScope: scope, Title: "nope",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "read_only") {
		t.Errorf("expected read_only code, got %q", text)
	}

	res, _, err = s.handleTrackerCreateIssue(context.Background(), nil, TrackerCreateIssueParams{
		TeamKey: "ENG", Title: "nope",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "read_only") {
		t.Errorf("expected read_only code, got %q", text)
	}
	if s.Activity.Len() != 0 {
		t.Errorf("read-only mutations were recorded")
	}
}

func TestTrackerIssueByIdentifier(t *testing.T) {
	s := testService(t, false, nil)

	res, _, err := s.handleTrackerGetIssue(context.Background(), nil, TrackerGetIssueParams{ID: "ENG-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.Contains(text, `"id": "issue-1"`) {
		t.Errorf("expected issue-1 payload, got %s", text)
	}

	res, _, _ = s.handleTrackerGetIssue(context.Background(), nil, TrackerGetIssueParams{ID: "ENG-99"})
	if !res.IsError {
		t.Fatal("expected error result for unknown identifier")
	}
	if text := resultText(t, res); !strings.Contains(text, "not_found") {
		t.Errorf("expected not_found code, got %q", text)
	}
}

func TestTrackerMutationAttribution(t *testing.T) {
	s := testService(t, false, nil)

	res, _, err := s.handleTrackerCreateComment(context.Background(), nil, TrackerCreateCommentParams{
		IssueID: "ENG-1", Body: "Looking into this now.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	// Comments are attributed to the configured viewer.
	if text := resultText(t, res); !strings.Contains(text, `"userId": "user-1"`) {
		t.Errorf("expected viewer attribution, got %s", text)
	}
}

func TestReloadKeepsActivity(t *testing.T) {
	s := testService(t, false, nil)

	if _, _, err := s.handleCreateIssue(context.Background(), nil, CreateIssueParams{
		RepoScope: RepoScope{Owner: "acme-corp", Repo: "webhook-service"},
		Title:     "Transient issue",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Activity.Len() != 1 {
		t.Fatalf("expected 1 activity entry, got %d", s.Activity.Len())
	}

	if err := s.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	// Overlay state is discarded, the activity log is not.
	if _, err := s.host.GetIssue(43); err == nil {
		t.Error("overlay issue survived reload")
	}
	if s.Activity.Len() != 1 {
		t.Errorf("activity log lost across reload, got %d entries", s.Activity.Len())
	}
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{guard.ErrRepoAccessDenied, "repo_access_denied"},
		{guard.ErrBranchHidden, "branch_hidden"},
		{ErrHeadBranchNotFound, "head_branch_not_found"},
		{ErrReadOnly, "read_only"},
		{gitrepo.ErrNotFound, "not_found"},
		{tracker.ErrNotFound, "not_found"},
		{codehost.ErrNotFound, "not_found"},
		{gitrepo.ErrTimeout, "timeout"},
		{gitrepo.ErrRepositoryUnavailable, "repository_unavailable"},
		{gitrepo.ErrBinaryContent, "binary_content"},
		{os.ErrPermission, "internal_error"},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
