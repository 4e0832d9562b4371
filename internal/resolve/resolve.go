// Package resolve implements component C3: a backtracking constraint
// solver over a root specifier map, producing a single transitively closed
// pinned version per dependency with no nondeterminism for a given input.
package resolve

import (
	"context"

	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/manifest"
)

// SourceProvider is the Resolver's only collaborator: everything it knows
// about candidate versions and transitive manifests comes through here.
// internal/retriever.Retriever satisfies this structurally.
type SourceProvider interface {
	VersionsOf(ctx context.Context, dep depmodel.Dependency) ([]depmodel.PinnedVersion, error)
	ResolveRef(ctx context.Context, dep depmodel.Dependency, ref string) (depmodel.PinnedVersion, error)
	DependenciesOf(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, tryCheckout bool, checkoutDir string) ([]manifest.Entry, error)
}

// Resolver runs the backtracking constraint-satisfaction search.
type Resolver struct {
	src SourceProvider
}

// New builds a Resolver over src.
func New(src SourceProvider) *Resolver {
	return &Resolver{src: src}
}

// Request is one resolve invocation's inputs.
type Request struct {
	// Root is the project's own declared constraints.
	Root []manifest.Entry
	// Previous is the prior resolved map, used as the update anchor. Nil
	// means "no previous resolution" (every dependency is free to move).
	Previous *manifest.Resolved
	// UpdatableNames restricts which dependencies (by CanonicalName) are
	// allowed to move away from Previous's pin. Nil means every dependency
	// is updatable (a fresh/full resolve); a non-nil map, even empty,
	// restricts moves to exactly the names it contains.
	UpdatableNames map[string]bool
}

// Resolve computes a transitively closed Resolved manifest for req.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*manifest.Resolved, error) {
	ds := newDependencySet(r.src, req.Previous, req.UpdatableNames)

	for _, e := range req.Root {
		if err := ds.require(ctx, "", true, e.Dependency, e.Specifier); err != nil {
			return nil, err
		}
	}

	cache := newConflictCache()
	problematic := make(map[string]int)

	final, err := search(ctx, ds, cache, problematic)
	if err != nil {
		return nil, err
	}

	return final.toResolved()
}
