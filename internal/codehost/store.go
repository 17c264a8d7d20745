package codehost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

type snapshot struct {
	meta         RepoMetadata
	issues       []*Issue
	byNumber     map[int]*Issue
	maxNumber    int
	maxCommentID int64
}

type overlay struct {
	issues        map[int]*Issue
	createdIssues []int
	pulls         map[int]*PullRequest
	pullOrder     []int
	nextNumber    int
	nextCommentID int64
}

// Store holds the code-host records: an immutable base snapshot loaded from
// static files plus an overlay for runtime mutations. Pull requests live
// only in the overlay.
type Store struct {
	mu      sync.RWMutex
	dataDir string
	base    *snapshot
	ov      *overlay
}

// Load parses the repository metadata and issue collection from dataDir.
func Load(dataDir string) (*Store, error) {
	snap, err := loadSnapshot(dataDir)
	if err != nil {
		return nil, err
	}
	return &Store{dataDir: dataDir, base: snap, ov: newOverlay(snap)}, nil
}

// Reload atomically replaces the base snapshot and discards the overlay.
func (s *Store) Reload(dataDir string) error {
	snap, err := loadSnapshot(dataDir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.dataDir = dataDir
	s.base = snap
	s.ov = newOverlay(snap)
	s.mu.Unlock()
	return nil
}

func newOverlay(snap *snapshot) *overlay {
	return &overlay{
		issues:        make(map[int]*Issue),
		pulls:         make(map[int]*PullRequest),
		nextNumber:    snap.maxNumber + 1,
		nextCommentID: snap.maxCommentID + 1,
	}
}

func loadSnapshot(dataDir string) (*snapshot, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("code-host data directory is not configured")
	}

	snap := &snapshot{byNumber: make(map[int]*Issue)}

	metaPath := filepath.Join(dataDir, "repo.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", metaPath, err)
	}
	if err := json.Unmarshal(data, &snap.meta); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", metaPath, err)
	}

	issuesPath := filepath.Join(dataDir, "issues.json")
	data, err = os.ReadFile(issuesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", issuesPath, err)
	}
	var issues []Issue
	if err := json.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", issuesPath, err)
	}
	for i := range issues {
		issue := issues[i]
		if issue.State == "" {
			issue.State = "open"
		}
		if _, dup := snap.byNumber[issue.Number]; dup {
			return nil, fmt.Errorf("duplicate issue number %d in %s", issue.Number, issuesPath)
		}
		stored := issue
		snap.issues = append(snap.issues, &stored)
		snap.byNumber[issue.Number] = &stored
		if issue.Number > snap.maxNumber {
			snap.maxNumber = issue.Number
		}
		for _, comment := range issue.Comments {
			if comment.ID > snap.maxCommentID {
				snap.maxCommentID = comment.ID
			}
		}
	}
	return snap, nil
}

// Meta returns the repository metadata.
func (s *Store) Meta() RepoMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.meta
}

// GetIssue resolves an issue overlay-first.
func (s *Store) GetIssue(number int) (Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if issue, ok := s.ov.issues[number]; ok {
		return *issue, nil
	}
	if issue, ok := s.base.byNumber[number]; ok {
		return *issue, nil
	}
	return Issue{}, fmt.Errorf("issue #%d: %w", number, ErrNotFound)
}

// ListIssues returns issues in source order plus overlay creations, filtered
// by state ("open", "closed", or "all") and an optional label.
func (s *Store) ListIssues(state, label string) []Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if state == "" {
		state = "open"
	}

	var out []Issue
	appendIf := func(issue *Issue) {
		if state != "all" && issue.State != state {
			return
		}
		if label != "" && !hasLabel(issue, label) {
			return
		}
		out = append(out, *issue)
	}

	for _, base := range s.base.issues {
		issue := base
		if shadow, ok := s.ov.issues[base.Number]; ok {
			issue = shadow
		}
		appendIf(issue)
	}
	for _, number := range s.ov.createdIssues {
		appendIf(s.ov.issues[number])
	}
	return out
}

func hasLabel(issue *Issue, label string) bool {
	for _, l := range issue.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// CreateIssue allocates the next number (shared with pull requests) and
// records the issue in the overlay.
func (s *Store) CreateIssue(title, body, user, assignee string, labels []string) (Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(title) == "" {
		return Issue{}, fmt.Errorf("issue title is required")
	}

	now := time.Now().UTC()
	issue := &Issue{
		Number:    s.ov.nextNumber,
		Title:     title,
		Body:      body,
		State:     "open",
		User:      user,
		Assignee:  assignee,
		Labels:    append([]string(nil), labels...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.ov.nextNumber++
	s.ov.issues[issue.Number] = issue
	s.ov.createdIssues = append(s.ov.createdIssues, issue.Number)
	return *issue, nil
}

// UpdateIssue layers a shadow copy over the base record and applies the
// non-nil patch fields.
func (s *Store) UpdateIssue(number int, patch IssuePatch) (Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.shadowLocked(number)
	if err != nil {
		return Issue{}, err
	}

	if patch.Title != nil {
		issue.Title = *patch.Title
	}
	if patch.Body != nil {
		issue.Body = *patch.Body
	}
	if patch.State != nil {
		state := *patch.State
		if state != "open" && state != "closed" {
			return Issue{}, fmt.Errorf("invalid issue state %q", state)
		}
		issue.State = state
	}
	if patch.Assignee != nil {
		issue.Assignee = *patch.Assignee
	}
	if patch.Labels != nil {
		issue.Labels = append([]string(nil), (*patch.Labels)...)
	}
	issue.UpdatedAt = time.Now().UTC()
	return *issue, nil
}

// CreateComment appends a comment to an issue's overlay copy.
func (s *Store) CreateComment(number int, user, body string) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(body) == "" {
		return Comment{}, fmt.Errorf("comment body is required")
	}

	issue, err := s.shadowLocked(number)
	if err != nil {
		return Comment{}, err
	}

	comment := Comment{
		ID:        s.ov.nextCommentID,
		User:      user,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	s.ov.nextCommentID++
	issue.Comments = append(issue.Comments, comment)
	issue.UpdatedAt = comment.CreatedAt
	return comment, nil
}

// ListComments returns an issue's comments in creation order.
func (s *Store) ListComments(number int) ([]Comment, error) {
	issue, err := s.GetIssue(number)
	if err != nil {
		return nil, err
	}
	return append([]Comment(nil), issue.Comments...), nil
}

// CreatePull records a pull request in the overlay. Head existence in the
// bare repository is the dispatch layer's responsibility; the store only
// allocates the number and keeps the record.
func (s *Store) CreatePull(title, body, head, base, user string, issueNumber int) (PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(title) == "" {
		return PullRequest{}, fmt.Errorf("pull request title is required")
	}
	if head == "" || base == "" {
		return PullRequest{}, fmt.Errorf("pull request head and base are required")
	}

	pr := &PullRequest{
		Number:      s.ov.nextNumber,
		Title:       title,
		Body:        body,
		Head:        head,
		Base:        base,
		State:       "open",
		User:        user,
		IssueNumber: issueNumber,
		CreatedAt:   time.Now().UTC(),
	}
	s.ov.nextNumber++
	s.ov.pulls[pr.Number] = pr
	s.ov.pullOrder = append(s.ov.pullOrder, pr.Number)
	return *pr, nil
}

// GetPull returns an overlay pull request by number.
func (s *Store) GetPull(number int) (PullRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pr, ok := s.ov.pulls[number]; ok {
		return *pr, nil
	}
	return PullRequest{}, fmt.Errorf("pull request #%d: %w", number, ErrNotFound)
}

// ListPulls returns overlay pull requests in creation order.
func (s *Store) ListPulls() []PullRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PullRequest, 0, len(s.ov.pullOrder))
	for _, number := range s.ov.pullOrder {
		out = append(out, *s.ov.pulls[number])
	}
	return out
}

func (s *Store) shadowLocked(number int) (*Issue, error) {
	if issue, ok := s.ov.issues[number]; ok {
		return issue, nil
	}
	base, ok := s.base.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("issue #%d: %w", number, ErrNotFound)
	}
	shadow := *base
	shadow.Labels = append([]string(nil), base.Labels...)
	shadow.Comments = append([]Comment(nil), base.Comments...)
	s.ov.issues[number] = &shadow
	return &shadow, nil
}
