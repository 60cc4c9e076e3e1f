package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/starford/hugopub/internal/apperr"
)

// Author identifies the committer of content changes.
type Author struct {
	Name  string
	Email string
}

// Repo is a Store that commits every change to a git repository rooted at
// the same directory as the FS.
type Repo struct {
	*FS

	mu     sync.Mutex
	repo   *git.Repository
	author Author
	logger *slog.Logger
}

var _ Store = (*Repo)(nil)

// OpenRepo opens the git repository at fs.Root(), initialising one when
// the directory is not a repository yet.
func OpenRepo(fs *FS, author Author, logger *slog.Logger) (*Repo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	repo, err := git.PlainOpen(fs.Root())
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logger.Info("initialising content repository", slog.String("path", fs.Root()))
		repo, err = git.PlainInit(fs.Root(), false)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open repo: %w", err)
	}
	return &Repo{FS: fs, repo: repo, author: author, logger: logger}, nil
}

// Save writes content and commits it. An unchanged file yields an empty
// revision.
func (r *Repo) Save(path string, content []byte, message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.FS.Clean(path)
	if err != nil {
		return "", err
	}
	if err := r.FS.Write(path, content); err != nil {
		return "", err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("storage: worktree: %w", err)
	}
	if _, err := wt.Add(path); err != nil {
		return "", fmt.Errorf("storage: git add %s: %w", path, err)
	}
	return r.commit(wt, message)
}

// Remove deletes the file and commits the deletion. Files unknown to git
// are deleted without a commit.
func (r *Repo) Remove(path, message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.FS.Clean(path)
	if err != nil {
		return "", err
	}
	if !r.FS.Exists(path) {
		return "", fmt.Errorf("storage: remove %s: %w", path, apperr.ErrNotFound)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("storage: worktree: %w", err)
	}
	if _, err := wt.Remove(path); err != nil {
		if errors.Is(err, gitindex.ErrEntryNotFound) {
			return "", r.FS.Delete(path)
		}
		return "", fmt.Errorf("storage: git rm %s: %w", path, err)
	}
	return r.commit(wt, message)
}

func (r *Repo) commit(wt *git.Worktree, message string) (string, error) {
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.author.Name,
			Email: r.author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", nil
		}
		return "", fmt.Errorf("storage: commit: %w", err)
	}
	r.logger.Info("content committed", slog.String("revision", hash.String()), slog.String("message", message))
	return hash.String(), nil
}

// Head returns the current commit message and revision, mostly for tests
// and diagnostics.
func (r *Repo) Head() (string, string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("storage: head: %w", err)
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return "", "", fmt.Errorf("storage: head commit: %w", err)
	}
	return ref.Hash().String(), c.Message, nil
}
