package tracker

import "time"

// Team is a workspace team. Key is the identifier prefix for its issues
// (e.g. "ENG" for ENG-305).
type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// User is a workspace member.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"admin,omitempty"`
	IsGuest bool   `json:"guest,omitempty"`
}

// Viewer is the single authenticated identity the workspace serves.
type Viewer struct {
	User
	Organization string `json:"organization,omitempty"`
}

// WorkflowState is a per-team issue state. Type is one of backlog, unstarted,
// started, completed, canceled.
type WorkflowState struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	TeamID string `json:"teamId"`
}

// Label is an issue label owned by a team.
type Label struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	TeamID string `json:"teamId,omitempty"`
}

// Project groups issues under a team. Referential integrity is advisory.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TeamID      string `json:"teamId,omitempty"`
	State       string `json:"state,omitempty"`
}

// Cycle is a time-boxed iteration for a team.
type Cycle struct {
	ID       string    `json:"id"`
	Number   int       `json:"number"`
	Name     string    `json:"name,omitempty"`
	TeamID   string    `json:"teamId,omitempty"`
	StartsAt time.Time `json:"startsAt,omitzero"`
	EndsAt   time.Time `json:"endsAt,omitzero"`
}

// Document is a free-form document, optionally attached to a project.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Comment belongs to exactly one issue or document; ordering is creation
// order.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Issue is a tracker ticket. Number is unique and strictly increasing within
// the workspace; Identifier is "<TEAMKEY>-<number>".
type Issue struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    int       `json:"priority,omitempty"`
	TeamID      string    `json:"teamId"`
	StateID     string    `json:"stateId"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	CreatorID   string    `json:"creatorId,omitempty"`
	LabelIDs    []string  `json:"labelIds,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// IssueFilter selects issues by exact-match fields. A zero value matches
// everything. StateType matches the workflow state category.
type IssueFilter struct {
	TeamID     string
	TeamKey    string
	StateID    string
	StateType  string
	AssigneeID string
	LabelID    string
	Priority   *int
}

// CreateIssue holds the fields for a new issue. Unset optional fields get
// type-appropriate defaults (the team's backlog state for StateID).
type CreateIssue struct {
	TeamID      string
	TeamKey     string
	Title       string
	Description string
	StateID     string
	AssigneeID  string
	CreatorID   string
	Priority    int
	LabelIDs    []string
}

// IssuePatch holds field updates for an existing issue. Nil fields are left
// unchanged. StateName resolves against the issue's team (case-insensitive).
type IssuePatch struct {
	Title       *string
	Description *string
	StateID     *string
	StateName   *string
	AssigneeID  *string
	Priority    *int
}
