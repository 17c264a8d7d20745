package tracker

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

// snapshot is the immutable base loaded from a data directory. It is never
// mutated after construction; runtime changes live in the overlay.
type snapshot struct {
	teams      []Team
	teamsByID  map[string]Team
	teamsByKey map[string]Team

	users     []User
	usersByID map[string]User

	states        []WorkflowState
	statesByID    map[string]WorkflowState
	backlogByTeam map[string]string

	labels    []Label
	projects  []Project
	cycles    []Cycle
	documents []Document
	viewer    *Viewer

	issues     []*Issue
	issuesByID map[string]*Issue

	maxNumber    int
	commentCount int
}

// overlay holds records created or shadow-updated during a run. It is
// discarded wholesale on reload; base files are never written.
type overlay struct {
	issues     map[string]*Issue
	created    []string
	nextNumber int
	commentSeq int
}

// Store is the in-memory entity store: an immutable base snapshot plus an
// append-only overlay consulted first on every read.
type Store struct {
	mu      sync.RWMutex
	dataDir string
	base    *snapshot
	ov      *overlay
}

// Load parses all record collections from dataDir into a new store.
func Load(dataDir string) (*Store, error) {
	snap, err := loadSnapshot(dataDir)
	if err != nil {
		return nil, err
	}
	return &Store{
		dataDir: dataDir,
		base:    snap,
		ov:      newOverlay(snap),
	}, nil
}

// Reload atomically replaces the base snapshot and clears the overlay. The
// new snapshot is built fully before it is published, so concurrent reads
// never observe a partial state.
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
		issues:     make(map[string]*Issue),
		nextNumber: snap.maxNumber + 1,
		commentSeq: snap.commentCount + 1,
	}
}

func loadSnapshot(dataDir string) (*snapshot, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("tracker data directory is not configured")
	}
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("tracker data directory %s is not readable", dataDir)
	}

	snap := &snapshot{
		teamsByID:     make(map[string]Team),
		teamsByKey:    make(map[string]Team),
		usersByID:     make(map[string]User),
		statesByID:    make(map[string]WorkflowState),
		backlogByTeam: make(map[string]string),
		issuesByID:    make(map[string]*Issue),
	}

	if err := readCollection(dataDir, "teams.json", true, &snap.teams); err != nil {
		return nil, err
	}
	for _, team := range snap.teams {
		snap.teamsByID[team.ID] = team
		snap.teamsByKey[team.Key] = team
	}

	if err := readCollection(dataDir, "users.json", true, &snap.users); err != nil {
		return nil, err
	}
	for _, user := range snap.users {
		snap.usersByID[user.ID] = user
	}

	if err := readCollection(dataDir, "workflow_states.json", true, &snap.states); err != nil {
		return nil, err
	}
	for _, state := range snap.states {
		snap.statesByID[state.ID] = state
		if state.Type == "backlog" {
			if _, ok := snap.backlogByTeam[state.TeamID]; !ok {
				snap.backlogByTeam[state.TeamID] = state.ID
			}
		}
	}
	for _, team := range snap.teams {
		if _, ok := snap.backlogByTeam[team.ID]; !ok {
			return nil, fmt.Errorf("team %s (%s) has no backlog workflow state", team.Key, team.ID)
		}
	}

	var issues []Issue
	if err := readCollection(dataDir, "issues.json", true, &issues); err != nil {
		return nil, err
	}
	for i := range issues {
		issue := issues[i]
		if _, ok := snap.statesByID[issue.StateID]; !ok {
			return nil, fmt.Errorf("issue %s references unknown workflow state %q", issue.ID, issue.StateID)
		}
		if _, ok := snap.teamsByID[issue.TeamID]; !ok {
			return nil, fmt.Errorf("issue %s references unknown team %q", issue.ID, issue.TeamID)
		}
		stored := issue
		snap.issues = append(snap.issues, &stored)
		snap.issuesByID[issue.ID] = &stored
		if issue.Number > snap.maxNumber {
			snap.maxNumber = issue.Number
		}
		snap.commentCount += len(issue.Comments)
	}

	// Optional collections; referential integrity is advisory here.
	if err := readCollection(dataDir, "labels.json", false, &snap.labels); err != nil {
		return nil, err
	}
	if err := readCollection(dataDir, "projects.json", false, &snap.projects); err != nil {
		return nil, err
	}
	if err := readCollection(dataDir, "cycles.json", false, &snap.cycles); err != nil {
		return nil, err
	}
	if err := readCollection(dataDir, "documents.json", false, &snap.documents); err != nil {
		return nil, err
	}
	for _, doc := range snap.documents {
		snap.commentCount += len(doc.Comments)
	}

	var viewer Viewer
	ok, err := readRecord(dataDir, "viewer.json", &viewer)
	if err != nil {
		return nil, err
	}
	if ok {
		snap.viewer = &viewer
	}

	return snap, nil
}

// readCollection decodes a JSON array file into out. A missing file is an
// error only when required.
func readCollection(dataDir, name string, required bool, out any) error {
	path := filepath.Join(dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// readRecord decodes a single JSON object file into out, reporting whether
// the file existed.
func readRecord(dataDir, name string, out any) (bool, error) {
	path := filepath.Join(dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

// Teams returns all teams in source order.
func (s *Store) Teams() []Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Team(nil), s.base.teams...)
}

// TeamByKey looks a team up by its short key.
func (s *Store) TeamByKey(key string) (Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.base.teamsByKey[key]
	return team, ok
}

// Users returns all users in source order.
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]User(nil), s.base.users...)
}

// Viewer returns the authenticated identity record, if configured.
func (s *Store) Viewer() (Viewer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.base.viewer == nil {
		return Viewer{}, false
	}
	return *s.base.viewer, true
}

// WorkflowStates returns workflow states, optionally restricted to one team.
func (s *Store) WorkflowStates(teamID string) []WorkflowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]WorkflowState, 0, len(s.base.states))
	for _, state := range s.base.states {
		if teamID == "" || state.TeamID == teamID {
			states = append(states, state)
		}
	}
	return states
}

// StateByID looks a workflow state up by id.
func (s *Store) StateByID(id string) (WorkflowState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.base.statesByID[id]
	return state, ok
}

// Labels returns all labels in source order.
func (s *Store) Labels() []Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Label(nil), s.base.labels...)
}

// Projects returns all projects in source order.
func (s *Store) Projects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Project(nil), s.base.projects...)
}

// Cycles returns all cycles in source order.
func (s *Store) Cycles() []Cycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Cycle(nil), s.base.cycles...)
}

// Documents returns all documents in source order.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Document(nil), s.base.documents...)
}

// GetIssue resolves an issue overlay-first, falling back to the base
// snapshot.
func (s *Store) GetIssue(id string) (Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if issue, ok := s.ov.issues[id]; ok {
		return *issue, nil
	}
	if issue, ok := s.base.issuesByID[id]; ok {
		return *issue, nil
	}
	return Issue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
}

// ListIssues returns issues in source insertion order (base order, then
// overlay creations in creation order), filtered by the provided predicates.
// No implicit sorting is applied.
func (s *Store) ListIssues(filter IssueFilter) []Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Issue
	for _, base := range s.base.issues {
		issue := base
		if shadow, ok := s.ov.issues[base.ID]; ok {
			issue = shadow
		}
		if s.matches(issue, filter) {
			out = append(out, *issue)
		}
	}
	for _, id := range s.ov.created {
		issue := s.ov.issues[id]
		if s.matches(issue, filter) {
			out = append(out, *issue)
		}
	}
	return out
}

// ListComments returns an issue's comments in creation order.
func (s *Store) ListComments(issueID string) ([]Comment, error) {
	issue, err := s.GetIssue(issueID)
	if err != nil {
		return nil, err
	}
	return append([]Comment(nil), issue.Comments...), nil
}

func (s *Store) matches(issue *Issue, filter IssueFilter) bool {
	if filter.TeamID != "" && issue.TeamID != filter.TeamID {
		return false
	}
	if filter.TeamKey != "" {
		team, ok := s.base.teamsByKey[filter.TeamKey]
		if !ok || issue.TeamID != team.ID {
			return false
		}
	}
	if filter.StateID != "" && issue.StateID != filter.StateID {
		return false
	}
	if filter.StateType != "" {
		state, ok := s.base.statesByID[issue.StateID]
		if !ok || state.Type != filter.StateType {
			return false
		}
	}
	if filter.AssigneeID != "" && issue.AssigneeID != filter.AssigneeID {
		return false
	}
	if filter.LabelID != "" {
		found := false
		for _, labelID := range issue.LabelIDs {
			if labelID == filter.LabelID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Priority != nil && issue.Priority != *filter.Priority {
		return false
	}
	return true
}

// CreateIssue allocates the next issue number and records the entity in the
// overlay. Base files are never mutated.
func (s *Store) CreateIssue(fields CreateIssue) (Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(fields.Title) == "" {
		return Issue{}, fmt.Errorf("issue title is required")
	}

	team, ok := s.base.teamsByID[fields.TeamID]
	if !ok && fields.TeamKey != "" {
		team, ok = s.base.teamsByKey[fields.TeamKey]
	}
	if !ok {
		ref := fields.TeamID
		if ref == "" {
			ref = fields.TeamKey
		}
		return Issue{}, fmt.Errorf("team %q: %w", ref, ErrNotFound)
	}

	stateID := fields.StateID
	if stateID == "" {
		stateID = s.base.backlogByTeam[team.ID]
	} else {
		state, ok := s.base.statesByID[stateID]
		if !ok || state.TeamID != team.ID {
			return Issue{}, fmt.Errorf("workflow state %q for team %s: %w", stateID, team.Key, ErrNotFound)
		}
	}

	number := s.ov.nextNumber
	s.ov.nextNumber++

	now := time.Now().UTC()
	issue := &Issue{
		ID:          fmt.Sprintf("issue-%d", number),
		Identifier:  fmt.Sprintf("%s-%d", team.Key, number),
		Number:      number,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority,
		TeamID:      team.ID,
		StateID:     stateID,
		AssigneeID:  fields.AssigneeID,
		CreatorID:   fields.CreatorID,
		LabelIDs:    append([]string(nil), fields.LabelIDs...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.ov.issues[issue.ID] = issue
	s.ov.created = append(s.ov.created, issue.ID)
	return *issue, nil
}

// UpdateIssue layers a shadow copy over the base record and applies the
// non-nil patch fields.
func (s *Store) UpdateIssue(id string, patch IssuePatch) (Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.shadowLocked(id)
	if err != nil {
		return Issue{}, err
	}

	if patch.Title != nil {
		issue.Title = *patch.Title
	}
	if patch.Description != nil {
		issue.Description = *patch.Description
	}
	if patch.StateID != nil {
		state, ok := s.base.statesByID[*patch.StateID]
		if !ok || state.TeamID != issue.TeamID {
			return Issue{}, fmt.Errorf("workflow state %q: %w", *patch.StateID, ErrNotFound)
		}
		issue.StateID = state.ID
	}
	if patch.StateName != nil {
		state, err := s.stateByNameLocked(issue.TeamID, *patch.StateName)
		if err != nil {
			return Issue{}, err
		}
		issue.StateID = state.ID
	}
	if patch.AssigneeID != nil {
		issue.AssigneeID = *patch.AssigneeID
	}
	if patch.Priority != nil {
		issue.Priority = *patch.Priority
	}
	issue.UpdatedAt = time.Now().UTC()
	return *issue, nil
}

// CreateComment appends a comment to an issue's overlay copy.
func (s *Store) CreateComment(issueID, body, userID string) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(body) == "" {
		return Comment{}, fmt.Errorf("comment body is required")
	}

	issue, err := s.shadowLocked(issueID)
	if err != nil {
		return Comment{}, err
	}

	comment := Comment{
		ID:        fmt.Sprintf("comment-%d", s.ov.commentSeq),
		Body:      body,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	s.ov.commentSeq++

	issue.Comments = append(issue.Comments, comment)
	issue.UpdatedAt = comment.CreatedAt
	return comment, nil
}

// shadowLocked returns the overlay copy of an issue, creating one from the
// base record on first write. Callers must hold the write lock.
func (s *Store) shadowLocked(id string) (*Issue, error) {
	if issue, ok := s.ov.issues[id]; ok {
		return issue, nil
	}
	base, ok := s.base.issuesByID[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	shadow := *base
	shadow.LabelIDs = append([]string(nil), base.LabelIDs...)
	shadow.Comments = append([]Comment(nil), base.Comments...)
	s.ov.issues[id] = &shadow
	return &shadow, nil
}

func (s *Store) stateByNameLocked(teamID, name string) (WorkflowState, error) {
	for _, state := range s.base.states {
		if state.TeamID == teamID && strings.EqualFold(state.Name, name) {
			return state, nil
		}
	}
	return WorkflowState{}, fmt.Errorf("workflow state %q: %w", name, ErrNotFound)
}
