package resolve

import (
	"context"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/manifest"
)

// search is the depth-first backtracking loop. Conflict-directed
// backjumping is emulated: instead of unwinding multiple stack frames at
// once, every rejection is recorded in cache so sibling branches that
// would repeat it short-circuit immediately.
func search(ctx context.Context, ds *DependencySet, cache *conflictCache, problematic map[string]int) (*DependencySet, error) {
	if ds.rejection != nil {
		return nil, ds.rejection
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ds.unresolved) == 0 {
		return finalize(ds)
	}

	name := ds.pickNext(problematic)
	cs := ds.sets[name]

	for {
		cand, ok := cs.candidates.First()
		if !ok {
			return nil, cgerrors.RequiredVersionNotFound(name, "<no remaining candidates>")
		}

		if rec, known := cache.lookup(name, cand.Pinned()); known {
			cs.candidates.Remove(cand)
			problematic[name]++
			if cs.candidates.Len() == 0 {
				return nil, rec.err
			}
			continue
		}

		branch := ds.clone()
		bcs := branch.sets[name]
		pinnedCopy := cand
		bcs.pinned = &pinnedCopy
		delete(branch.unresolved, name)

		entries, err := ds.src.DependenciesOf(ctx, cs.dep, cand.Pinned(), false, "")
		if err != nil {
			cache.record(name, cand.Pinned(), err)
			cs.candidates.Remove(cand)
			problematic[name]++
			if cs.candidates.Len() == 0 {
				return nil, err
			}
			continue
		}

		if expandErr := branch.expand(ctx, name, bcs.locked, entries); expandErr != nil {
			cache.record(name, cand.Pinned(), expandErr)
			cs.candidates.Remove(cand)
			problematic[name]++
			if cs.candidates.Len() == 0 {
				return nil, expandErr
			}
			continue
		}

		result, err := search(ctx, branch, cache, problematic)
		if err == nil {
			return result, nil
		}

		cache.record(name, cand.Pinned(), err)
		cs.candidates.Remove(cand)
		problematic[name]++
		if cs.candidates.Len() == 0 {
			return nil, err
		}
	}
}

// expand applies every transitive entry a just-pinned candidate declares.
func (ds *DependencySet) expand(ctx context.Context, byName string, parentLocked bool, entries []manifest.Entry) error {
	for _, e := range entries {
		if err := ds.require(ctx, byName, parentLocked, e.Dependency, e.Specifier); err != nil {
			return err
		}
	}
	return nil
}
