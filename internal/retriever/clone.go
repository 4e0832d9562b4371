package retriever

import (
	"context"
	"os"
	"time"

	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/gitvcs"
)

// remoteURL returns the git-fetchable URL for a dependency.
func remoteURL(dep depmodel.Dependency) string {
	switch dep.Kind {
	case depmodel.KindGitHub:
		return "https://" + dep.Host + "/" + dep.Owner + "/" + dep.Name + ".git"
	default:
		return dep.URL
	}
}

// CloneOrFetch materializes (or refreshes) the local mirror for dep,
// returning its path. commitish, when non-empty,
// is the specific commit-ish the caller needs present; if it does not
// already resolve in the local mirror, a fetch is forced even within the
// freshness window. A branch name that already resolves locally is not
// refetched until the freshness window has passed.
func (r *Retriever) CloneOrFetch(ctx context.Context, dep depmodel.Dependency, commitish string) (string, error) {
	url := remoteURL(dep)
	v, err, _ := r.coalesce.Do("clone-or-fetch:"+url, func() (interface{}, error) {
		return r.cloneOrFetchLocked(ctx, url, commitish)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Retriever) cloneOrFetchLocked(ctx context.Context, url, commitish string) (string, error) {
	path := r.mirrorPath(url)
	var result string
	err := r.withURLLock(ctx, url, 0, func() error {
		repo, err := gitvcs.Open(url, path)
		if err != nil {
			return err
		}

		if !isValidGitDir(path) {
			if err := r.freshClone(ctx, repo, path); err != nil {
				return err
			}
			result = path
			return r.disk.RecordFetch(url, now())
		}

		stale, err := r.isStale(url)
		if err != nil {
			return err
		}
		needsCommit := commitish != "" && !repo.IsReference(commitish)

		if stale || needsCommit {
			if err := repo.Fetch(ctx); err != nil {
				// Suspected corruption: remove and retry exactly once.
				os.RemoveAll(path)
				if err2 := r.freshClone(ctx, repo, path); err2 != nil {
					return err2
				}
				result = path
				return r.disk.RecordFetch(url, now())
			}
			if err := r.disk.RecordFetch(url, now()); err != nil {
				return err
			}
		}
		result = path
		return nil
	})
	return result, err
}

func (r *Retriever) freshClone(ctx context.Context, repo *gitvcs.Repo, path string) error {
	os.RemoveAll(path)
	return repo.Clone(ctx)
}

func (r *Retriever) isStale(url string) (bool, error) {
	last, err := r.disk.LastFetch(url)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		return true, nil
	}
	return time.Since(last) > FreshnessWindow, nil
}

func isValidGitDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// now is overridable in tests.
var now = time.Now
