package platform

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forgeval/forgeval/internal/codehost"
)

// mutationUser is the login mutations are attributed to. The agent acts as
// a single platform user; static records carry their own authors.
const mutationUser = "agent"

// RepoScope names the repository a code-host tool operates on. Every
// code-host call is validated against the single configured repository.
type RepoScope struct {
	Owner string `json:"owner" jsonschema:"Repository owner"`
	Repo  string `json:"repo" jsonschema:"Repository name"`
}

type GetRepositoryParams struct {
	RepoScope
}

type ListBranchesParams struct {
	RepoScope
}

type GetBranchParams struct {
	RepoScope
	Branch string `json:"branch" jsonschema:"Branch name"`
}

type GetFileContentsParams struct {
	RepoScope
	Path string `json:"path" jsonschema:"File path within the repository"`
	Ref  string `json:"ref,omitempty" jsonschema:"Branch, tag or commit SHA (defaults to the default branch)"`
}

type ListCommitsParams struct {
	RepoScope
	SHA     string `json:"sha,omitempty" jsonschema:"Branch or commit to start listing from (defaults to the default branch)"`
	Path    string `json:"path,omitempty" jsonschema:"Only commits touching this path"`
	PerPage int    `json:"per_page,omitempty" jsonschema:"Maximum number of commits to return (default 30)"`
}

type GetCommitParams struct {
	RepoScope
	SHA string `json:"sha" jsonschema:"Commit SHA or ref"`
}

type CompareCommitsParams struct {
	RepoScope
	Base string `json:"base" jsonschema:"Base ref of the comparison"`
	Head string `json:"head" jsonschema:"Head ref of the comparison"`
}

type SearchCodeParams struct {
	RepoScope
	Query string `json:"query" jsonschema:"Literal string to search for"`
	Ref   string `json:"ref,omitempty" jsonschema:"Ref to search at (defaults to the default branch)"`
}

type ListPullRequestsParams struct {
	RepoScope
}

type GetPullRequestParams struct {
	RepoScope
	Number int `json:"number" jsonschema:"Pull request number"`
}

type ListIssuesParams struct {
	RepoScope
	State string `json:"state,omitempty" jsonschema:"Filter by state: open, closed or all (default open)"`
	Label string `json:"label,omitempty" jsonschema:"Filter by label name"`
}

type GetIssueParams struct {
	RepoScope
	Number int `json:"number" jsonschema:"Issue number"`
}

type ListIssueCommentsParams struct {
	RepoScope
	Number int `json:"number" jsonschema:"Issue number"`
}

type CreateIssueParams struct {
	RepoScope
	Title    string   `json:"title" jsonschema:"Issue title"`
	Body     string   `json:"body,omitempty" jsonschema:"Issue body"`
	Assignee string   `json:"assignee,omitempty" jsonschema:"Login to assign"`
	Labels   []string `json:"labels,omitempty" jsonschema:"Label names"`
}

type UpdateIssueParams struct {
	RepoScope
	Number   int       `json:"number" jsonschema:"Issue number"`
	Title    *string   `json:"title,omitempty" jsonschema:"New title"`
	Body     *string   `json:"body,omitempty" jsonschema:"New body"`
	State    *string   `json:"state,omitempty" jsonschema:"New state: open or closed"`
	Assignee *string   `json:"assignee,omitempty" jsonschema:"New assignee login"`
	Labels   *[]string `json:"labels,omitempty" jsonschema:"Replacement label set"`
}

type CreateIssueCommentParams struct {
	RepoScope
	Number int    `json:"number" jsonschema:"Issue number"`
	Body   string `json:"body" jsonschema:"Comment body"`
}

type CreatePullRequestParams struct {
	RepoScope
	Title       string `json:"title" jsonschema:"Pull request title"`
	Body        string `json:"body,omitempty" jsonschema:"Pull request body"`
	Head        string `json:"head" jsonschema:"Branch containing the changes"`
	Base        string `json:"base" jsonschema:"Branch to merge into"`
	IssueNumber int    `json:"issue_number,omitempty" jsonschema:"Issue this pull request addresses"`
}

func (s *Service) registerCodeHostTools(server *mcp.Server) {
	addTool(s, server, "get_repository", "Get repository metadata", s.handleGetRepository)
	addTool(s, server, "list_branches", "List branches in the repository", s.handleListBranches)
	addTool(s, server, "get_branch", "Get a branch and its head commit", s.handleGetBranch)
	addTool(s, server, "get_file_contents", "Read a file at a ref", s.handleGetFileContents)
	addTool(s, server, "list_commits", "List commits reachable from a ref", s.handleListCommits)
	addTool(s, server, "get_commit", "Get a single commit", s.handleGetCommit)
	addTool(s, server, "get_commit_diff", "Get the diff introduced by a commit", s.handleGetCommitDiff)
	addTool(s, server, "compare_commits", "Diff two refs", s.handleCompareCommits)
	addTool(s, server, "search_code", "Search file contents for a literal string", s.handleSearchCode)
	addTool(s, server, "list_pull_requests", "List pull requests", s.handleListPullRequests)
	addTool(s, server, "get_pull_request", "Get a pull request", s.handleGetPullRequest)
	addTool(s, server, "list_issues", "List repository issues", s.handleListIssues)
	addTool(s, server, "get_issue", "Get a repository issue", s.handleGetIssue)
	addTool(s, server, "list_issue_comments", "List comments on an issue", s.handleListIssueComments)

	if s.readOnly {
		return
	}
	addTool(s, server, "create_issue", "Open a new issue", s.handleCreateIssue)
	addTool(s, server, "update_issue", "Update an existing issue", s.handleUpdateIssue)
	addTool(s, server, "create_issue_comment", "Comment on an issue", s.handleCreateIssueComment)
	addTool(s, server, "create_pull_request", "Open a pull request", s.handleCreatePullRequest)
}

func (s *Service) handleGetRepository(ctx context.Context, req *mcp.CallToolRequest, params GetRepositoryParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("get_repository", err)
	}
	return jsonResult(s.host.Meta().GitHub())
}

func (s *Service) handleListBranches(ctx context.Context, req *mcp.CallToolRequest, params ListBranchesParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("list_branches", err)
	}
	branches, err := s.repo.ListBranches(ctx)
	if err != nil {
		return errorResult("list_branches", err)
	}
	out := make([]any, 0, len(branches))
	for _, b := range branches {
		out = append(out, codehost.BranchGitHub(b.Name, b.SHA))
	}
	return jsonResult(out)
}

func (s *Service) handleGetBranch(ctx context.Context, req *mcp.CallToolRequest, params GetBranchParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("get_branch", err)
	}
	sha, err := s.repo.ResolveRef(ctx, params.Branch)
	if err != nil {
		return errorResult("get_branch", err)
	}
	return jsonResult(codehost.BranchGitHub(params.Branch, sha))
}

func (s *Service) handleGetFileContents(ctx context.Context, req *mcp.CallToolRequest, params GetFileContentsParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("get_file_contents", err)
	}
	ref := params.Ref
	if ref == "" {
		ref = s.repo.DefaultBranch()
	}
	content, err := s.repo.FileContents(ctx, ref, params.Path)
	if err != nil {
		return errorResult("get_file_contents", err)
	}
	return textResult(content)
}

func (s *Service) handleListCommits(ctx context.Context, req *mcp.CallToolRequest, params ListCommitsParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("list_commits", err)
	}
	ref := params.SHA
	if ref == "" {
		ref = s.repo.DefaultBranch()
	}
	limit := params.PerPage
	if limit <= 0 {
		limit = 30
	}
	commits, err := s.repo.ListCommits(ctx, ref, params.Path, limit)
	if err != nil {
		return errorResult("list_commits", err)
	}
	out := make([]any, 0, len(commits))
	for _, c := range commits {
		out = append(out, codehost.CommitGitHub(c))
	}
	return jsonResult(out)
}

func (s *Service) handleGetCommit(ctx context.Context, req *mcp.CallToolRequest, params GetCommitParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("get_commit", err)
	}
	commit, err := s.repo.GetCommit(ctx, params.SHA)
	if err != nil {
		return errorResult("get_commit", err)
	}
	return jsonResult(codehost.CommitGitHub(commit))
}

func (s *Service) handleGetCommitDiff(ctx context.Context, req *mcp.CallToolRequest, params GetCommitParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("get_commit_diff", err)
	}
	diff, err := s.repo.GetCommitDiff(ctx, params.SHA)
	if err != nil {
		return errorResult("get_commit_diff", err)
	}
	return textResult(diff)
}

func (s *Service) handleCompareCommits(ctx context.Context, req *mcp.CallToolRequest, params CompareCommitsParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("compare_commits", err)
	}
	diff, err := s.repo.CompareCommits(ctx, params.Base, params.Head)
	if err != nil {
		return errorResult("compare_commits", err)
	}
	return textResult(diff)
}

func (s *Service) handleSearchCode(ctx context.Context, req *mcp.CallToolRequest, params SearchCodeParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("search_code", err)
	}
	matches, err := s.repo.SearchCode(ctx, params.Query, params.Ref)
	if err != nil {
		return errorResult("search_code", err)
	}
	return jsonResult(map[string]any{
		"total_count": len(matches),
		"items":       matches,
	})
}

func (s *Service) handleListPullRequests(ctx context.Context, req *mcp.CallToolRequest, params ListPullRequestsParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("list_pull_requests", err)
	}
	pulls := s.host.ListPulls()
	out := make([]any, 0, len(pulls))
	for _, p := range pulls {
		out = append(out, p.GitHub())
	}
	return jsonResult(out)
}

func (s *Service) handleGetPullRequest(ctx context.Context, req *mcp.CallToolRequest, params GetPullRequestParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("get_pull_request", err)
	}
	pull, err := s.host.GetPull(params.Number)
	if err != nil {
		return errorResult("get_pull_request", err)
	}
	return jsonResult(pull.GitHub())
}

func (s *Service) handleListIssues(ctx context.Context, req *mcp.CallToolRequest, params ListIssuesParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("list_issues", err)
	}
	issues := s.host.ListIssues(params.State, params.Label)
	out := make([]any, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.GitHub())
	}
	return jsonResult(out)
}

func (s *Service) handleGetIssue(ctx context.Context, req *mcp.CallToolRequest, params GetIssueParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("get_issue", err)
	}
	issue, err := s.host.GetIssue(params.Number)
	if err != nil {
		return errorResult("get_issue", err)
	}
	return jsonResult(issue.GitHub())
}

func (s *Service) handleListIssueComments(ctx context.Context, req *mcp.CallToolRequest, params ListIssueCommentsParams) (*mcp.CallToolResult, any, error) {
	if err := s.guard.ValidateScope(params.Owner, params.Repo); err != nil {
		return errorResult("list_issue_comments", err)
	}
	comments, err := s.host.ListComments(params.Number)
	if err != nil {
		return errorResult("list_issue_comments", err)
	}
	out := make([]any, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.GitHub())
	}
	return jsonResult(out)
}

func (s *Service) handleCreateIssue(ctx context.Context, req *mcp.CallToolRequest, params CreateIssueParams) (*mcp.CallToolResult, any, error) {
	if err := s.mutationAllowed(params.Owner, params.Repo); err != nil {
		return errorResult("create_issue", err)
	}
	issue, err := s.host.CreateIssue(params.Title, params.Body, mutationUser, params.Assignee, params.Labels)
	if err != nil {
		return errorResult("create_issue", err)
	}
	s.Activity.Record("create_issue", fmt.Sprintf("#%d %q", issue.Number, issue.Title))
	return jsonResult(issue.GitHub())
}

func (s *Service) handleUpdateIssue(ctx context.Context, req *mcp.CallToolRequest, params UpdateIssueParams) (*mcp.CallToolResult, any, error) {
	if err := s.mutationAllowed(params.Owner, params.Repo); err != nil {
		return errorResult("update_issue", err)
	}
	issue, err := s.host.UpdateIssue(params.Number, codehost.IssuePatch{
		Title:    params.Title,
		Body:     params.Body,
		State:    params.State,
		Assignee: params.Assignee,
		Labels:   params.Labels,
	})
	if err != nil {
		return errorResult("update_issue", err)
	}
	s.Activity.Record("update_issue", fmt.Sprintf("#%d state=%s", issue.Number, issue.State))
	return jsonResult(issue.GitHub())
}

func (s *Service) handleCreateIssueComment(ctx context.Context, req *mcp.CallToolRequest, params CreateIssueCommentParams) (*mcp.CallToolResult, any, error) {
	if err := s.mutationAllowed(params.Owner, params.Repo); err != nil {
		return errorResult("create_issue_comment", err)
	}
	comment, err := s.host.CreateComment(params.Number, mutationUser, params.Body)
	if err != nil {
		return errorResult("create_issue_comment", err)
	}
	s.Activity.Record("create_issue_comment", fmt.Sprintf("#%d comment %d", params.Number, comment.ID))
	return jsonResult(comment.GitHub())
}

func (s *Service) handleCreatePullRequest(ctx context.Context, req *mcp.CallToolRequest, params CreatePullRequestParams) (*mcp.CallToolResult, any, error) {
	if err := s.mutationAllowed(params.Owner, params.Repo); err != nil {
		return errorResult("create_pull_request", err)
	}

	// The head must be a real branch in the bare repository; hidden refs
	// are rejected before existence is even checked.
	if err := s.guard.ValidateRef(params.Head); err != nil {
		return errorResult("create_pull_request", err)
	}
	exists, err := s.repo.BranchExists(ctx, params.Head)
	if err != nil {
		return errorResult("create_pull_request", err)
	}
	if !exists {
		return errorResult("create_pull_request", fmt.Errorf("branch %q: %w", params.Head, ErrHeadBranchNotFound))
	}

	pull, err := s.host.CreatePull(params.Title, params.Body, params.Head, params.Base, mutationUser, params.IssueNumber)
	if err != nil {
		return errorResult("create_pull_request", err)
	}
	s.Activity.Record("create_pull_request", fmt.Sprintf("#%d %s -> %s", pull.Number, pull.Head, pull.Base))
	return jsonResult(pull.GitHub())
}

// mutationAllowed combines the scope check with the read-only gate.
func (s *Service) mutationAllowed(owner, repo string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.guard.ValidateScope(owner, repo)
}
