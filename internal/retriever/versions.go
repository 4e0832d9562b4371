package retriever

import (
	"context"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/gitvcs"
)

// VersionsOf returns the PinnedVersions available for dep: for git
// dependencies, the tags in the (possibly freshly fetched) mirror that
// parse as SemVer; for binary dependencies, the versions enumerated by its
// binary manifest.
//
// Concurrent calls for the same dependency are coalesced into exactly one
// underlying network fetch.
func (r *Retriever) VersionsOf(ctx context.Context, dep depmodel.Dependency) ([]depmodel.PinnedVersion, error) {
	url := remoteURL(dep)
	v, err, _ := r.coalesce.Do("versions-of:"+url, func() (interface{}, error) {
		if dep.Kind == depmodel.KindBinary {
			return r.binaryManifestVersions(ctx, dep)
		}
		return r.versionsOfGit(ctx, dep)
	})
	if err != nil {
		return nil, err
	}
	return v.([]depmodel.PinnedVersion), nil
}

func (r *Retriever) versionsOfGit(ctx context.Context, dep depmodel.Dependency) ([]depmodel.PinnedVersion, error) {
	url := remoteURL(dep)

	if cached, ok, err := r.disk.Versions(url); err != nil {
		return nil, err
	} else if ok {
		if fresh, err := r.freshEnoughForVersions(url); err != nil {
			return nil, err
		} else if fresh {
			return toPinned(cached), nil
		}
	}

	path, err := r.CloneOrFetch(ctx, dep, "")
	if err != nil {
		return nil, err
	}
	repo, err := gitvcs.Open(url, path)
	if err != nil {
		return nil, err
	}
	tags, err := repo.Tags(ctx)
	if err != nil {
		return nil, cgerrors.GitFailed(err)
	}

	var out []string
	for _, t := range tags {
		if _, ok := depmodel.PinnedVersion(t).Semantic(); ok {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, cgerrors.TaggedVersionNotFound(dep.CanonicalName())
	}
	if err := r.disk.PutVersions(url, out); err != nil {
		return nil, err
	}
	return toPinned(out), nil
}

func (r *Retriever) freshEnoughForVersions(url string) (bool, error) {
	stale, err := r.isStale(url)
	return !stale, err
}

func toPinned(ss []string) []depmodel.PinnedVersion {
	out := make([]depmodel.PinnedVersion, len(ss))
	for i, s := range ss {
		out[i] = depmodel.PinnedVersion(s)
	}
	return out
}

// ResolveRef resolves a branch, tag, or short commit id to a full commit,
// fetching first if necessary. If the resolved
// commit is also the target of a semver tag, ResolveRef still returns the
// bare commit id — pinning to the tag instead is the resolver's job when
// admissible, not the retriever's.
func (r *Retriever) ResolveRef(ctx context.Context, dep depmodel.Dependency, ref string) (depmodel.PinnedVersion, error) {
	url := remoteURL(dep)
	path, err := r.CloneOrFetch(ctx, dep, ref)
	if err != nil {
		return "", err
	}
	repo, err := gitvcs.Open(url, path)
	if err != nil {
		return "", err
	}
	commit, err := repo.ResolveRef(ctx, ref)
	if err != nil {
		return "", cgerrors.RequiredVersionNotFound(dep.CanonicalName(), depmodel.GitReference(ref).String())
	}
	return depmodel.PinnedVersion(commit), nil
}

// Prefetch runs CloneOrFetch in parallel over deps, bounded by the
// retriever's configured concurrency. When
// includedNames is non-nil, only dependencies whose CanonicalName appears
// in it are fetched.
func (r *Retriever) Prefetch(ctx context.Context, deps []depmodel.Dependency, includedNames map[string]bool) error {
	errs := make(chan error, len(deps))
	for _, d := range deps {
		d := d
		if includedNames != nil && !includedNames[d.CanonicalName()] {
			errs <- nil
			continue
		}
		go func() {
			_, err := r.CloneOrFetch(ctx, d, "")
			errs <- err
		}()
	}
	var first error
	for range deps {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}
