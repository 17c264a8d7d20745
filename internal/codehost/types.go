package codehost

import "time"

// RepoMetadata describes the single mocked repository.
type RepoMetadata struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	DefaultBranch string `json:"defaultBranch"`
	Private       bool   `json:"private"`
	Stars         int    `json:"stars,omitempty"`
	Forks         int    `json:"forks,omitempty"`
	OpenIssues    int    `json:"openIssues,omitempty"`
}

// Comment is an issue comment; ordering is creation order.
type Comment struct {
	ID        int64     `json:"id"`
	User      string    `json:"user,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Issue is a code-host issue. Number is unique within the repository and
// shared with pull requests, matching hosted-platform numbering.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	State     string    `json:"state"`
	User      string    `json:"user,omitempty"`
	Assignee  string    `json:"assignee,omitempty"`
	Labels    []string  `json:"labels,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// PullRequest exists only in the runtime overlay; the base data files never
// carry one.
type PullRequest struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Head        string    `json:"head"`
	Base        string    `json:"base"`
	State       string    `json:"state"`
	User        string    `json:"user,omitempty"`
	IssueNumber int       `json:"issueNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// IssuePatch holds field updates for an existing issue. Nil fields are left
// unchanged.
type IssuePatch struct {
	Title    *string
	Body     *string
	State    *string
	Assignee *string
	Labels   *[]string
}
