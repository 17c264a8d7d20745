package codehost

import (
	"fmt"

	"github.com/forgeval/forgeval/internal/gitrepo"
	"github.com/google/go-github/v66/github"
)

// The tool layer serves go-github shapes so agent-side clients see the same
// JSON a hosted code platform would produce.

// GitHub converts repository metadata to the go-github shape.
func (m RepoMetadata) GitHub() *github.Repository {
	fullName := fmt.Sprintf("%s/%s", m.Owner, m.Name)
	return &github.Repository{
		Name:            github.String(m.Name),
		FullName:        github.String(fullName),
		Owner:           &github.User{Login: github.String(m.Owner)},
		Description:     github.String(m.Description),
		DefaultBranch:   github.String(m.DefaultBranch),
		Private:         github.Bool(m.Private),
		StargazersCount: github.Int(m.Stars),
		ForksCount:      github.Int(m.Forks),
		OpenIssuesCount: github.Int(m.OpenIssues),
	}
}

// GitHub converts an issue to the go-github shape.
func (i Issue) GitHub() *github.Issue {
	labels := make([]*github.Label, 0, len(i.Labels))
	for _, name := range i.Labels {
		labels = append(labels, &github.Label{Name: github.String(name)})
	}
	out := &github.Issue{
		Number:    github.Int(i.Number),
		Title:     github.String(i.Title),
		Body:      github.String(i.Body),
		State:     github.String(i.State),
		Labels:    labels,
		Comments:  github.Int(len(i.Comments)),
		CreatedAt: &github.Timestamp{Time: i.CreatedAt},
		UpdatedAt: &github.Timestamp{Time: i.UpdatedAt},
	}
	if i.User != "" {
		out.User = &github.User{Login: github.String(i.User)}
	}
	if i.Assignee != "" {
		out.Assignee = &github.User{Login: github.String(i.Assignee)}
	}
	return out
}

// GitHub converts a comment to the go-github shape.
func (c Comment) GitHub() *github.IssueComment {
	out := &github.IssueComment{
		ID:        github.Int64(c.ID),
		Body:      github.String(c.Body),
		CreatedAt: &github.Timestamp{Time: c.CreatedAt},
	}
	if c.User != "" {
		out.User = &github.User{Login: github.String(c.User)}
	}
	return out
}

// GitHub converts a pull request to the go-github shape.
func (p PullRequest) GitHub() *github.PullRequest {
	out := &github.PullRequest{
		Number:    github.Int(p.Number),
		Title:     github.String(p.Title),
		Body:      github.String(p.Body),
		State:     github.String(p.State),
		Head:      &github.PullRequestBranch{Ref: github.String(p.Head)},
		Base:      &github.PullRequestBranch{Ref: github.String(p.Base)},
		CreatedAt: &github.Timestamp{Time: p.CreatedAt},
	}
	if p.User != "" {
		out.User = &github.User{Login: github.String(p.User)}
	}
	return out
}

// CommitGitHub converts adapter commit metadata to the go-github shape.
func CommitGitHub(c gitrepo.Commit) *github.RepositoryCommit {
	return &github.RepositoryCommit{
		SHA: github.String(c.SHA),
		Commit: &github.Commit{
			Message: github.String(c.Message),
			Author: &github.CommitAuthor{
				Name:  github.String(c.Author),
				Email: github.String(c.AuthorEmail),
				Date:  &github.Timestamp{Time: c.Date},
			},
		},
	}
}

// BranchGitHub builds the go-github branch shape from a name and its head
// commit SHA.
func BranchGitHub(name, sha string) *github.Branch {
	return &github.Branch{
		Name:   github.String(name),
		Commit: &github.RepositoryCommit{SHA: github.String(sha)},
	}
}
