// Package gitinfo resolves last-commit times for files in a git work tree.
// The CLI uses these to date pages whose front matter carries no date.
package gitinfo

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/yorickpeterse/wobsite/internal/logfields"
)

// Times answers "when was this file last committed" for one repository.
// Lookups are cached; a nil *Times misses every lookup, so callers can
// treat "no repository" as an always-miss instance.
type Times struct {
	mu    sync.Mutex
	repo  *git.Repository
	root  string
	cache map[string]commitTime
}

type commitTime struct {
	when time.Time
	ok   bool
}

// Open locates the repository containing dir, walking up to find the .git
// directory. It returns git.ErrRepositoryNotExists when dir is not inside
// a work tree.
func Open(dir string) (*Times, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	root := wt.Filesystem.Root()
	slog.Debug("opened repository for file dates", logfields.Path(root))

	return &Times{repo: repo, root: root, cache: map[string]commitTime{}}, nil
}

// LastCommit returns the committer time of the most recent commit touching
// file. It reports false for files outside the work tree, files that were
// never committed, and on a nil receiver.
func (t *Times) LastCommit(file string) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}

	rel, ok := t.relative(file)
	if !ok {
		return time.Time{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cached, ok := t.cache[rel]; ok {
		return cached.when, cached.ok
	}

	found := t.lookup(rel)
	t.cache[rel] = found

	return found.when, found.ok
}

func (t *Times) lookup(rel string) commitTime {
	iter, err := t.repo.Log(&git.LogOptions{
		FileName: &rel,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return commitTime{}
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return commitTime{}
	}

	return commitTime{when: commit.Committer.When, ok: true}
}

// relative maps file onto its slash-separated path inside the work tree.
func (t *Times) relative(file string) (string, bool) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(t.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}
