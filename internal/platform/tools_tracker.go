package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forgeval/forgeval/internal/tracker"
)

type EmptyParams struct{}

type ListWorkflowStatesParams struct {
	TeamID string `json:"team_id,omitempty" jsonschema:"Restrict to one team's states"`
}

type TrackerListIssuesParams struct {
	TeamID     string `json:"team_id,omitempty" jsonschema:"Filter by team ID"`
	TeamKey    string `json:"team_key,omitempty" jsonschema:"Filter by team key (e.g. ENG)"`
	StateID    string `json:"state_id,omitempty" jsonschema:"Filter by workflow state ID"`
	StateType  string `json:"state_type,omitempty" jsonschema:"Filter by workflow state type (backlog, unstarted, started, completed, canceled)"`
	AssigneeID string `json:"assignee_id,omitempty" jsonschema:"Filter by assignee user ID"`
	LabelID    string `json:"label_id,omitempty" jsonschema:"Filter by label ID"`
	Priority   *int   `json:"priority,omitempty" jsonschema:"Filter by priority (0 none to 4 low)"`
}

type TrackerGetIssueParams struct {
	ID string `json:"id" jsonschema:"Issue ID or identifier (e.g. ENG-42)"`
}

type TrackerCreateIssueParams struct {
	TeamID      string   `json:"team_id,omitempty" jsonschema:"Team ID (this or team_key is required)"`
	TeamKey     string   `json:"team_key,omitempty" jsonschema:"Team key (e.g. ENG)"`
	Title       string   `json:"title" jsonschema:"Issue title"`
	Description string   `json:"description,omitempty" jsonschema:"Issue description (markdown)"`
	StateID     string   `json:"state_id,omitempty" jsonschema:"Workflow state ID (defaults to the team's backlog state)"`
	AssigneeID  string   `json:"assignee_id,omitempty" jsonschema:"Assignee user ID"`
	Priority    int      `json:"priority,omitempty" jsonschema:"Priority (0 none to 4 low)"`
	LabelIDs    []string `json:"label_ids,omitempty" jsonschema:"Label IDs"`
}

type TrackerUpdateIssueParams struct {
	ID          string  `json:"id" jsonschema:"Issue ID or identifier"`
	Title       *string `json:"title,omitempty" jsonschema:"New title"`
	Description *string `json:"description,omitempty" jsonschema:"New description"`
	StateID     *string `json:"state_id,omitempty" jsonschema:"New workflow state ID"`
	StateName   *string `json:"state_name,omitempty" jsonschema:"New workflow state by name (e.g. Done)"`
	AssigneeID  *string `json:"assignee_id,omitempty" jsonschema:"New assignee user ID"`
	Priority    *int    `json:"priority,omitempty" jsonschema:"New priority"`
}

type TrackerCreateCommentParams struct {
	IssueID string `json:"issue_id" jsonschema:"Issue ID or identifier"`
	Body    string `json:"body" jsonschema:"Comment body (markdown)"`
}

func (s *Service) registerTrackerTools(server *mcp.Server) {
	addTool(s, server, "linear_get_viewer", "Get the authenticated tracker identity", s.handleTrackerViewer)
	addTool(s, server, "linear_list_teams", "List tracker teams", s.handleTrackerTeams)
	addTool(s, server, "linear_list_users", "List tracker users", s.handleTrackerUsers)
	addTool(s, server, "linear_list_workflow_states", "List workflow states", s.handleTrackerStates)
	addTool(s, server, "linear_list_labels", "List issue labels", s.handleTrackerLabels)
	addTool(s, server, "linear_list_projects", "List projects", s.handleTrackerProjects)
	addTool(s, server, "linear_list_cycles", "List cycles", s.handleTrackerCycles)
	addTool(s, server, "linear_list_documents", "List documents", s.handleTrackerDocuments)
	addTool(s, server, "linear_list_issues", "List tracker issues with optional filters", s.handleTrackerListIssues)
	addTool(s, server, "linear_get_issue", "Get a tracker issue", s.handleTrackerGetIssue)
	addTool(s, server, "linear_list_comments", "List comments on a tracker issue", s.handleTrackerListComments)

	if s.readOnly {
		return
	}
	addTool(s, server, "linear_create_issue", "Create a tracker issue", s.handleTrackerCreateIssue)
	addTool(s, server, "linear_update_issue", "Update a tracker issue", s.handleTrackerUpdateIssue)
	addTool(s, server, "linear_create_comment", "Comment on a tracker issue", s.handleTrackerCreateComment)
}

func (s *Service) handleTrackerViewer(ctx context.Context, req *mcp.CallToolRequest, params EmptyParams) (*mcp.CallToolResult, any, error) {
	viewer, ok := s.tracker.Viewer()
	if !ok {
		return errorResult("linear_get_viewer", fmt.Errorf("viewer: %w", tracker.ErrNotFound))
	}
	return jsonResult(viewer)
}

func (s *Service) handleTrackerTeams(ctx context.Context, req *mcp.CallToolRequest, params EmptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.tracker.Teams())
}

func (s *Service) handleTrackerUsers(ctx context.Context, req *mcp.CallToolRequest, params EmptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.tracker.Users())
}

func (s *Service) handleTrackerStates(ctx context.Context, req *mcp.CallToolRequest, params ListWorkflowStatesParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.tracker.WorkflowStates(params.TeamID))
}

func (s *Service) handleTrackerLabels(ctx context.Context, req *mcp.CallToolRequest, params EmptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.tracker.Labels())
}

func (s *Service) handleTrackerProjects(ctx context.Context, req *mcp.CallToolRequest, params EmptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.tracker.Projects())
}

func (s *Service) handleTrackerCycles(ctx context.Context, req *mcp.CallToolRequest, params EmptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.tracker.Cycles())
}

func (s *Service) handleTrackerDocuments(ctx context.Context, req *mcp.CallToolRequest, params EmptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.tracker.Documents())
}

func (s *Service) handleTrackerListIssues(ctx context.Context, req *mcp.CallToolRequest, params TrackerListIssuesParams) (*mcp.CallToolResult, any, error) {
	issues := s.tracker.ListIssues(tracker.IssueFilter{
		TeamID:     params.TeamID,
		TeamKey:    params.TeamKey,
		StateID:    params.StateID,
		StateType:  params.StateType,
		AssigneeID: params.AssigneeID,
		LabelID:    params.LabelID,
		Priority:   params.Priority,
	})
	return jsonResult(issues)
}

func (s *Service) handleTrackerGetIssue(ctx context.Context, req *mcp.CallToolRequest, params TrackerGetIssueParams) (*mcp.CallToolResult, any, error) {
	issue, err := s.trackerIssue(params.ID)
	if err != nil {
		return errorResult("linear_get_issue", err)
	}
	return jsonResult(issue)
}

func (s *Service) handleTrackerListComments(ctx context.Context, req *mcp.CallToolRequest, params TrackerGetIssueParams) (*mcp.CallToolResult, any, error) {
	issue, err := s.trackerIssue(params.ID)
	if err != nil {
		return errorResult("linear_list_comments", err)
	}
	comments, err := s.tracker.ListComments(issue.ID)
	if err != nil {
		return errorResult("linear_list_comments", err)
	}
	return jsonResult(comments)
}

func (s *Service) handleTrackerCreateIssue(ctx context.Context, req *mcp.CallToolRequest, params TrackerCreateIssueParams) (*mcp.CallToolResult, any, error) {
	if s.readOnly {
		return errorResult("linear_create_issue", ErrReadOnly)
	}
	issue, err := s.tracker.CreateIssue(tracker.CreateIssue{
		TeamID:      params.TeamID,
		TeamKey:     params.TeamKey,
		Title:       params.Title,
		Description: params.Description,
		StateID:     params.StateID,
		AssigneeID:  params.AssigneeID,
		CreatorID:   s.viewerID(),
		Priority:    params.Priority,
		LabelIDs:    params.LabelIDs,
	})
	if err != nil {
		return errorResult("linear_create_issue", err)
	}
	s.Activity.Record("linear_create_issue", fmt.Sprintf("%s %q", issue.Identifier, issue.Title))
	return jsonResult(issue)
}

func (s *Service) handleTrackerUpdateIssue(ctx context.Context, req *mcp.CallToolRequest, params TrackerUpdateIssueParams) (*mcp.CallToolResult, any, error) {
	if s.readOnly {
		return errorResult("linear_update_issue", ErrReadOnly)
	}
	existing, err := s.trackerIssue(params.ID)
	if err != nil {
		return errorResult("linear_update_issue", err)
	}
	issue, err := s.tracker.UpdateIssue(existing.ID, tracker.IssuePatch{
		Title:       params.Title,
		Description: params.Description,
		StateID:     params.StateID,
		StateName:   params.StateName,
		AssigneeID:  params.AssigneeID,
		Priority:    params.Priority,
	})
	if err != nil {
		return errorResult("linear_update_issue", err)
	}
	s.Activity.Record("linear_update_issue", fmt.Sprintf("%s state=%s", issue.Identifier, issue.StateID))
	return jsonResult(issue)
}

func (s *Service) handleTrackerCreateComment(ctx context.Context, req *mcp.CallToolRequest, params TrackerCreateCommentParams) (*mcp.CallToolResult, any, error) {
	if s.readOnly {
		return errorResult("linear_create_comment", ErrReadOnly)
	}
	issue, err := s.trackerIssue(params.IssueID)
	if err != nil {
		return errorResult("linear_create_comment", err)
	}
	comment, err := s.tracker.CreateComment(issue.ID, params.Body, s.viewerID())
	if err != nil {
		return errorResult("linear_create_comment", err)
	}
	s.Activity.Record("linear_create_comment", fmt.Sprintf("%s comment %s", issue.Identifier, comment.ID))
	return jsonResult(comment)
}

// trackerIssue resolves an issue by ID first, then by identifier, so agents
// can pass either "issue-7" or "ENG-7".
func (s *Service) trackerIssue(ref string) (tracker.Issue, error) {
	issue, err := s.tracker.GetIssue(ref)
	if err == nil {
		return issue, nil
	}
	if !errors.Is(err, tracker.ErrNotFound) {
		return tracker.Issue{}, err
	}
	for _, candidate := range s.tracker.ListIssues(tracker.IssueFilter{}) {
		if candidate.Identifier == ref {
			return candidate, nil
		}
	}
	return tracker.Issue{}, err
}

// viewerID attributes mutations to the configured viewer when present.
func (s *Service) viewerID() string {
	if viewer, ok := s.tracker.Viewer(); ok {
		return viewer.User.ID
	}
	return ""
}
