package resolve

import (
	"sort"

	"github.com/cartgo/cartgo/internal/cgerrors"
)

// finalize runs once every candidateSet is pinned: cycle detection, then
// same-named-duplicate elimination.
func finalize(ds *DependencySet) (*DependencySet, error) {
	if path, ok := ds.findCycle(); ok {
		return nil, cgerrors.DependencyCycle(path)
	}
	if err := ds.collapseDuplicates(); err != nil {
		return nil, err
	}
	return ds, nil
}

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// findCycle runs a DFS over the children adjacency recorded during require()
// calls, reporting the first cycle found as a path of canonical names.
func (ds *DependencySet) findCycle() ([]string, bool) {
	color := make(map[string]int, len(ds.sets))
	var path []string

	names := make([]string, 0, len(ds.sets))
	for n := range ds.sets {
		names = append(names, n)
	}
	sort.Strings(names)

	var visit func(name string) ([]string, bool)
	visit = func(name string) ([]string, bool) {
		color[name] = colorGray
		path = append(path, name)

		children := make([]string, 0, len(ds.sets[name].children))
		for c := range ds.sets[name].children {
			children = append(children, c)
		}
		sort.Strings(children)

		for _, c := range children {
			switch color[c] {
			case colorGray:
				cyclePath := append(append([]string(nil), path...), c)
				return cyclePath, true
			case colorWhite:
				if p, found := visit(c); found {
					return p, true
				}
			}
		}

		path = path[:len(path)-1]
		color[name] = colorBlack
		return nil, false
	}

	for _, n := range names {
		if color[n] == colorWhite {
			if p, found := visit(n); found {
				return p, true
			}
		}
	}
	return nil, false
}

// collapseDuplicates resolves same-canonical-name entries that were
// declared with differing Dependency identities (e.g. the same project
// reached via two different locator spellings): the highest-precedence
// specifier's Dependency wins; a precedence tie between differing
// Dependency identities is an error.
func (ds *DependencySet) collapseDuplicates() error {
	for name, cs := range ds.sets {
		if len(cs.defs) < 2 {
			continue
		}
		best := cs.defs[0]
		tied := []Definition{best}
		for _, d := range cs.defs[1:] {
			switch {
			case d.Specifier.HigherPrecedence(best.Specifier):
				best = d
				tied = []Definition{d}
			case best.Specifier.HigherPrecedence(d.Specifier):
				// strictly lower precedence, discard
			default:
				if !d.Dep.Equal(best.Dep) {
					tied = append(tied, d)
				}
			}
		}
		if len(tied) > 1 {
			names := make([]string, len(tied))
			for i, d := range tied {
				names[i] = d.Dep.Locator()
			}
			return cgerrors.IncompatibleDependencies(names)
		}
		cs.dep = best.Dep
		_ = name
	}
	return nil
}
