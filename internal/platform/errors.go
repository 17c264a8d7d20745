package platform

import (
	"errors"

	"github.com/forgeval/forgeval/internal/codehost"
	"github.com/forgeval/forgeval/internal/gitrepo"
	"github.com/forgeval/forgeval/internal/guard"
	"github.com/forgeval/forgeval/internal/tracker"
)

var (
	// ErrReadOnly indicates a mutating tool was called while the service
	// runs in read-only mode.
	ErrReadOnly = errors.New("service is read-only")
	// ErrHeadBranchNotFound indicates a pull request named a head branch
	// that does not exist in the repository.
	ErrHeadBranchNotFound = errors.New("head branch not found")
)

// errorCode maps an error to the stable code agents see in tool results.
// Unrecognized errors fall through to internal_error so infrastructure
// detail never leaks into an agent-visible message unclassified.
func errorCode(err error) string {
	switch {
	case errors.Is(err, guard.ErrRepoAccessDenied):
		return "repo_access_denied"
	case errors.Is(err, guard.ErrBranchHidden):
		return "branch_hidden"
	case errors.Is(err, ErrHeadBranchNotFound):
		return "head_branch_not_found"
	case errors.Is(err, ErrReadOnly):
		return "read_only"
	case errors.Is(err, gitrepo.ErrNotFound),
		errors.Is(err, tracker.ErrNotFound),
		errors.Is(err, codehost.ErrNotFound):
		return "not_found"
	case errors.Is(err, gitrepo.ErrBinaryContent):
		return "binary_content"
	case errors.Is(err, gitrepo.ErrTimeout):
		return "timeout"
	case errors.Is(err, gitrepo.ErrRepositoryUnavailable):
		return "repository_unavailable"
	}
	return "internal_error"
}
