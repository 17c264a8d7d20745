package guard

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrRepoAccessDenied indicates a tool call targeted a repository outside
	// the single configured owner/repo scope.
	ErrRepoAccessDenied = errors.New("repository access denied")
	// ErrBranchHidden indicates a ref matched the configured hidden set.
	ErrBranchHidden = errors.New("branch is hidden")
)

// Guard validates repository scope and hidden-ref restrictions. Every tool
// invocation must pass through the guard before the entity store or the git
// adapter is touched, so nothing about hidden content or foreign repositories
// leaks through error shapes or side effects.
type Guard struct {
	owner  string
	repo   string
	hidden map[string]bool
}

// New creates a guard for a single owner/repo scope and a set of hidden refs.
func New(owner, repo string, hiddenRefs []string) *Guard {
	hidden := make(map[string]bool, len(hiddenRefs))
	for _, ref := range hiddenRefs {
		if ref != "" {
			hidden[ref] = true
		}
	}
	return &Guard{owner: owner, repo: repo, hidden: hidden}
}

// ValidateScope checks the owner/repo pair against the configured scope.
func (g *Guard) ValidateScope(owner, repo string) error {
	if owner != g.owner || repo != g.repo {
		return fmt.Errorf("%w: %s/%s is not the configured repository", ErrRepoAccessDenied, owner, repo)
	}
	return nil
}

// ValidateRef rejects refs that exactly match a hidden entry. The match is
// case-sensitive.
func (g *Guard) ValidateRef(ref string) error {
	if g.hidden[ref] {
		return fmt.Errorf("%w: %s", ErrBranchHidden, ref)
	}
	return nil
}

// IsHidden reports whether ref is in the hidden set.
func (g *Guard) IsHidden(ref string) bool {
	return g.hidden[ref]
}

// HiddenRefs returns the hidden set in sorted order.
func (g *Guard) HiddenRefs() []string {
	refs := make([]string, 0, len(g.hidden))
	for ref := range g.hidden {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Owner returns the configured repository owner.
func (g *Guard) Owner() string { return g.owner }

// Repo returns the configured repository name.
func (g *Guard) Repo() string { return g.repo }
