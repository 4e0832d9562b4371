package resolve

import (
	"context"
	"sort"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/manifest"
)

// Definition records one place a canonical name was constrained: by whom
// (empty ByName means the project root), with which Dependency identity and
// VersionSpecifier.
type Definition struct {
	ByName    string
	Dep       depmodel.Dependency
	Specifier depmodel.VersionSpecifier
}

// candidateSet wraps a ConcreteVersionSet for one dependency: the live
// candidates for one canonical dependency name, plus the stack of
// Definitions that have constrained it and, once chosen, its pin.
type candidateSet struct {
	dep         depmodel.Dependency
	candidates  *depmodel.ConcreteVersionSet
	defs        []Definition
	pinned      *depmodel.ConcreteVersion
	resolvedRef depmodel.PinnedVersion // populated for gitReference-constrained deps
	locked      bool                   // true: pin inherited from Previous, not open to the search
	children    map[string]bool        // canonical names this dep directly requires
}

// DependencySet is the resolver's working state: a candidateSet per
// in-play dependency, which of them remain unresolved, which names the
// caller allowed to move, and a rejection error once the branch is dead.
type DependencySet struct {
	src            SourceProvider
	sets           map[string]*candidateSet
	unresolved     map[string]bool
	updatableNames map[string]bool
	previous       map[string]depmodel.PinnedVersion
	rejection      error
}

func newDependencySet(src SourceProvider, previous *manifest.Resolved, updatable map[string]bool) *DependencySet {
	prevMap := map[string]depmodel.PinnedVersion{}
	if previous != nil {
		prevMap = previous.ToMap()
	}
	return &DependencySet{
		src:            src,
		sets:           make(map[string]*candidateSet),
		unresolved:     make(map[string]bool),
		updatableNames: updatable,
		previous:       prevMap,
	}
}

// updatable reports whether canonical is free to move away from its
// previous pin. A nil updatableNames means "no restriction" (every
// dependency is updatable, the fresh/full-resolve case); a non-nil map
// (even empty) restricts updates to exactly the names it contains.
func (ds *DependencySet) updatable(canonical string) bool {
	if ds.updatableNames == nil {
		return true
	}
	return ds.updatableNames[canonical]
}

func (ds *DependencySet) isLocked(canonical string, parentLocked bool) bool {
	if ds.updatable(canonical) {
		return false
	}
	if _, has := ds.previous[canonical]; !has {
		return false
	}
	return parentLocked
}

// require applies one (dep, spec) constraint, creating dep's candidateSet
// on first sight or narrowing it on subsequent sightings.
func (ds *DependencySet) require(ctx context.Context, byName string, parentLocked bool, dep depmodel.Dependency, spec depmodel.VersionSpecifier) error {
	canonical := dep.CanonicalName()

	if byName != "" {
		if parent, ok := ds.sets[byName]; ok {
			if parent.children == nil {
				parent.children = make(map[string]bool)
			}
			parent.children[canonical] = true
		}
	}

	cs, exists := ds.sets[canonical]
	if !exists {
		var err error
		cs, err = ds.newCandidateSet(ctx, dep, spec, parentLocked)
		if err != nil {
			return err
		}
		cs.defs = append(cs.defs, Definition{ByName: byName, Dep: dep, Specifier: spec})
		ds.sets[canonical] = cs
		if cs.pinned == nil {
			ds.unresolved[canonical] = true
			return nil
		}
		// Already pinned (singleton candidate list, gitReference, or a
		// locked subset-update pin) — its transitive deps would otherwise
		// never be discovered, since search() only expands candidates it
		// selects itself.
		return ds.expandPinned(ctx, canonical, cs)
	}

	existing := describeExistingSpecifier(cs)
	cs.defs = append(cs.defs, Definition{ByName: byName, Dep: dep, Specifier: spec})

	if cs.pinned != nil {
		if !spec.Admits(cs.pinned.Pinned(), cs.resolvedRef) {
			return cgerrors.IncompatibleRequirements(canonical, existing, spec.String())
		}
		return nil
	}

	filtered := depmodel.NewConcreteVersionSet()
	for _, v := range cs.candidates.All() {
		if spec.Admits(v.Pinned(), cs.resolvedRef) {
			filtered.Insert(v)
		}
	}
	cs.candidates = filtered

	if filtered.Len() == 0 {
		if len(cs.defs) == 2 {
			return cgerrors.IncompatibleRequirements(canonical, existing, spec.String())
		}
		return cgerrors.UnsatisfiableDependencyList([]string{canonical})
	}
	return nil
}

// expandPinned fetches and applies the transitive manifest of an
// already-pinned candidateSet.
func (ds *DependencySet) expandPinned(ctx context.Context, canonical string, cs *candidateSet) error {
	entries, err := ds.src.DependenciesOf(ctx, cs.dep, cs.pinned.Pinned(), false, "")
	if err != nil {
		return err
	}
	return ds.expand(ctx, canonical, cs.locked, entries)
}

// describeExistingSpecifier renders the most recent prior Definition's
// specifier, for conflict messages — called before the new Definition for
// this require() call is appended.
func describeExistingSpecifier(cs *candidateSet) string {
	if len(cs.defs) == 0 {
		return ""
	}
	return cs.defs[len(cs.defs)-1].Specifier.String()
}

func (ds *DependencySet) newCandidateSet(ctx context.Context, dep depmodel.Dependency, spec depmodel.VersionSpecifier, parentLocked bool) (*candidateSet, error) {
	canonical := dep.CanonicalName()

	if spec.Kind == depmodel.SpecGitReference {
		resolved, err := ds.src.ResolveRef(ctx, dep, spec.Ref)
		if err != nil {
			return nil, err
		}
		cv := depmodel.NewConcreteVersion(resolved)
		set := depmodel.NewConcreteVersionSet()
		set.Insert(cv)
		return &candidateSet{dep: dep, candidates: set, pinned: &cv, resolvedRef: resolved}, nil
	}

	if ds.isLocked(canonical, parentLocked) {
		pin := ds.previous[canonical]
		cv := depmodel.NewConcreteVersion(pin)
		if !spec.Admits(cv.Pinned(), "") {
			return nil, cgerrors.RequiredVersionNotFound(canonical, spec.String())
		}
		set := depmodel.NewConcreteVersionSet()
		set.Insert(cv)
		return &candidateSet{dep: dep, candidates: set, pinned: &cv, locked: true}, nil
	}

	versions, err := ds.src.VersionsOf(ctx, dep)
	if err != nil {
		return nil, err
	}
	set := depmodel.NewConcreteVersionSet()
	for _, v := range versions {
		cv := depmodel.NewConcreteVersion(v)
		if spec.Admits(cv.Pinned(), "") {
			set.Insert(cv)
		}
	}
	if set.Len() == 0 {
		return nil, cgerrors.RequiredVersionNotFound(canonical, spec.String())
	}

	cs := &candidateSet{dep: dep, candidates: set}
	if set.Len() == 1 {
		cv, _ := set.First()
		cs.pinned = &cv
	}
	return cs, nil
}

// clone deep-copies the set so the search can branch: pin a candidate in
// the copy while the original keeps the rest to try as alternatives.
func (ds *DependencySet) clone() *DependencySet {
	n := &DependencySet{
		src:            ds.src,
		sets:           make(map[string]*candidateSet, len(ds.sets)),
		unresolved:     make(map[string]bool, len(ds.unresolved)),
		updatableNames: ds.updatableNames,
		previous:       ds.previous,
		rejection:      ds.rejection,
	}
	for k, v := range ds.sets {
		n.sets[k] = v.clone()
	}
	for k := range ds.unresolved {
		n.unresolved[k] = true
	}
	return n
}

func (cs *candidateSet) clone() *candidateSet {
	n := &candidateSet{
		dep:         cs.dep,
		candidates:  cs.candidates.Clone(),
		defs:        append([]Definition(nil), cs.defs...),
		resolvedRef: cs.resolvedRef,
		locked:      cs.locked,
	}
	if cs.pinned != nil {
		p := *cs.pinned
		n.pinned = &p
	}
	if cs.children != nil {
		n.children = make(map[string]bool, len(cs.children))
		for k := range cs.children {
			n.children[k] = true
		}
	}
	return n
}

// sortedUnresolvedNames returns ds.unresolved's keys sorted, for
// deterministic selection.
func (ds *DependencySet) sortedUnresolvedNames() []string {
	names := make([]string, 0, len(ds.unresolved))
	for n := range ds.unresolved {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// pickNext selects the next unresolved dependency, preferring one that
// appears in problematic, falling back to alphabetic order.
func (ds *DependencySet) pickNext(problematic map[string]int) string {
	names := ds.sortedUnresolvedNames()
	best := names[0]
	bestScore := problematic[best]
	for _, n := range names[1:] {
		if problematic[n] > bestScore {
			best, bestScore = n, problematic[n]
		}
	}
	return best
}

// toResolved renders a fully-pinned DependencySet as a manifest.Resolved.
func (ds *DependencySet) toResolved() (*manifest.Resolved, error) {
	names := make([]string, 0, len(ds.sets))
	for n := range ds.sets {
		names = append(names, n)
	}
	sort.Strings(names)

	res := &manifest.Resolved{}
	for _, n := range names {
		cs := ds.sets[n]
		if cs.pinned == nil {
			return nil, cgerrors.InternalError("candidate set " + n + " left unpinned at finalize")
		}
		res.Entries = append(res.Entries, manifest.ResolvedEntry{Dependency: cs.dep, Pinned: cs.pinned.Pinned()})
	}
	return res, nil
}
