// Package retriever implements component C2: the sole authority that reads
// from remote git, remote HTTP, the local git mirror, and the on-disk
// binary cache.
package retriever

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cartgo/cartgo/internal/diskcache"
	"github.com/cartgo/cartgo/internal/filelock"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// FreshnessWindow is how long a mirror fetch is considered fresh enough to
// skip.
const FreshnessWindow = 5 * time.Minute

// Retriever is cartgo's C2 implementation. One Retriever is shared across a
// whole resolve+build run; it owns the mirror cache directory, the disk
// cache of fetch timestamps/version lists, and the bounded fetch queue.
type Retriever struct {
	cacheRoot string // <home>/<cache-root>
	mirrors   string // cacheRoot/git-mirrors
	disk      *diskcache.Cache

	fetchSem *semaphore.Weighted // bounds concurrent mirror clone/fetch work to Options.Concurrency
	coalesce singleflight.Group  // coalesces concurrent calls for the same key
	binary   *BinaryCache
}

// Options configure a Retriever.
type Options struct {
	CacheRoot          string          // e.g. filepath.Join(homeDir, ".cartgo")
	Concurrency        int             // 0 means runtime.NumCPU()
	ReleasesAPI        ReleasesAPI     // optional tier-2 binary cache
	CustomFetchCommand []string        // optional tier-3 binary cache
	AssetContentTypes  map[string]bool // allow-list for tier-2 asset content-type
}

// New constructs a Retriever rooted at opts.CacheRoot.
func New(opts Options) (*Retriever, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	dc, err := diskcache.Open(opts.CacheRoot)
	if err != nil {
		return nil, err
	}
	r := &Retriever{
		cacheRoot: opts.CacheRoot,
		mirrors:   filepath.Join(opts.CacheRoot, "git-mirrors"),
		disk:      dc,
		fetchSem:  semaphore.NewWeighted(int64(opts.Concurrency)),
	}
	r.binary = NewBinaryCache(opts.CacheRoot, opts.ReleasesAPI, opts.CustomFetchCommand, opts.AssetContentTypes)
	return r, nil
}

// Close releases the disk cache handle.
func (r *Retriever) Close() error { return r.disk.Close() }

// mirrorPath returns the on-disk mirror directory for a dependency's
// network locator, sanitized into a filesystem-safe directory name.
func (r *Retriever) mirrorPath(locatorURL string) string {
	return filepath.Join(r.mirrors, sanitizeLocator(locatorURL))
}

// lockPathFor returns the per-URL exclusive lock file path.
func (r *Retriever) lockPathFor(locatorURL string) string {
	return r.mirrorPath(locatorURL) + ".lock"
}

// withURLLock runs fn while holding the exclusive lock for locatorURL and
// a slot in the bounded concurrency semaphore.
func (r *Retriever) withURLLock(ctx context.Context, locatorURL string, timeout time.Duration, fn func() error) error {
	if err := r.fetchSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.fetchSem.Release(1)

	return filelock.WithLock(ctx, r.lockPathFor(locatorURL), timeout, fn)
}

var sanitizer = strings.NewReplacer("-", "--", ":", "-", "/", "-", "+", "-", "@", "-")

func sanitizeLocator(s string) string { return sanitizer.Replace(s) }
