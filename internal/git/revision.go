package git

import (
	stderrors "errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

// UnknownRevision is recorded when the source tree is not a repository.
const UnknownRevision = "unknown"

// Revision returns the HEAD commit of the repository containing dir.
// Parent directories are searched for the repository root.
func Revision(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", errors.GitError("repository has no commits").
				WithCause(err).
				WithContext(errors.ContextPath, dir).
				Build()
		}
		return "", errors.WrapError(err, errors.CategoryGit, "resolve HEAD").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	return ref.Hash().String(), nil
}

// RevisionOrUnknown is Revision with UnknownRevision as fallback.
func RevisionOrUnknown(dir string) string {
	rev, err := Revision(dir)
	if err != nil {
		return UnknownRevision
	}
	return rev
}

// Dirty reports whether the work tree containing dir has uncommitted changes.
func Dirty(dir string) (bool, error) {
	repo, err := open(dir)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryGit, "open worktree").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	status, err := wt.Status()
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryGit, "read worktree status").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	return !status.IsClean(), nil
}

func open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "open repository").
			WithContext(errors.ContextPath, dir).
			Build()
	}
	return repo, nil
}
