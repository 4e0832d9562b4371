// Package orchestrator implements component C5: the build scheduler that
// drives a resolved dependency map through checkout, cache lookup, and the
// external build-task facade.
package orchestrator

import (
	"context"
	"sort"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/manifest"
)

// Node is one dependency in the build graph: its identity, pinned version,
// direct children (canonical names it depends on), and its topological
// level.
type Node struct {
	Dependency depmodel.Dependency
	Pinned     depmodel.PinnedVersion
	Children   []string // canonical names this node directly requires
	Level      int
}

// Graph is the resolved dependency set, edges, and level annotation.
type Graph struct {
	Nodes     map[string]*Node
	ByLevel   [][]string // ByLevel[i] holds canonical names at level i, alphabetically sorted
	Ancestors map[string][]string // reverse-graph: canonical names with a path TO this node
}

// GraphProvider supplies the transitive manifest at a pinned revision, the
// only network-touching operation graph construction needs.
type GraphProvider interface {
	DependenciesOf(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, tryCheckout bool, checkoutDir string) ([]manifest.Entry, error)
}

// BuildGraph derives the build graph from a resolved manifest by asking
// provider for each dependency's direct children at its pinned revision.
func BuildGraph(ctx context.Context, resolved *manifest.Resolved, provider GraphProvider) (*Graph, error) {
	nodes := make(map[string]*Node, len(resolved.Entries))
	for _, e := range resolved.Entries {
		name := e.Dependency.CanonicalName()
		nodes[name] = &Node{Dependency: e.Dependency, Pinned: e.Pinned}
	}

	for name, n := range nodes {
		entries, err := provider.DependenciesOf(ctx, n.Dependency, n.Pinned, false, "")
		if err != nil {
			return nil, err
		}
		var children []string
		for _, e := range entries {
			child := e.Dependency.CanonicalName()
			if _, ok := nodes[child]; !ok {
				// Not present in the resolved map: invariant 1
				// guarantees the resolver already closed the transitive
				// set, so this indicates a stale/partial resolved input.
				return nil, cgerrors.InternalError("orchestrator: " + name + " requires unresolved dependency " + child)
			}
			children = append(children, child)
		}
		sort.Strings(children)
		n.Children = children
	}

	if err := assignLevels(nodes); err != nil {
		return nil, err
	}

	byLevel := map[int][]string{}
	maxLevel := 0
	for name, n := range nodes {
		byLevel[n.Level] = append(byLevel[n.Level], name)
		if n.Level > maxLevel {
			maxLevel = n.Level
		}
	}
	levels := make([][]string, maxLevel+1)
	for i := range levels {
		names := byLevel[i]
		sort.Strings(names)
		levels[i] = names
	}

	return &Graph{Nodes: nodes, ByLevel: levels, Ancestors: reverseReachability(nodes)}, nil
}

// assignLevels computes each node's level as the longest path from any leaf
// (a node with no children), via Kahn's algorithm over the reverse graph —
// processing leaves first, then any node all of whose children are already
// leveled.
func assignLevels(nodes map[string]*Node) error {
	remaining := len(nodes)
	done := make(map[string]bool, remaining)

	for remaining > 0 {
		progressed := false

		var ready []string
		for name, n := range nodes {
			if done[name] {
				continue
			}
			allChildrenDone := true
			for _, c := range n.Children {
				if !done[c] {
					allChildrenDone = false
					break
				}
			}
			if allChildrenDone {
				ready = append(ready, name)
			}
		}
		sort.Strings(ready)

		for _, name := range ready {
			n := nodes[name]
			level := 0
			for _, c := range n.Children {
				if nodes[c].Level+1 > level {
					level = nodes[c].Level + 1
				}
			}
			n.Level = level
			done[name] = true
			remaining--
			progressed = true
		}

		if !progressed {
			return cgerrors.DependencyCycle(cyclePathHint(nodes, done))
		}
	}
	return nil
}

// cyclePathHint returns the names of every node that never became ready,
// sorted, as a best-effort description of the cyclic remainder.
func cyclePathHint(nodes map[string]*Node, done map[string]bool) []string {
	var stuck []string
	for name := range nodes {
		if !done[name] {
			stuck = append(stuck, name)
		}
	}
	sort.Strings(stuck)
	return stuck
}

// reverseReachability computes, for every node, the set of nodes that have
// a path TO it — used for rebuild propagation.
func reverseReachability(nodes map[string]*Node) map[string][]string {
	memo := make(map[string]map[string]bool, len(nodes))

	var ancestorsOf func(name string) map[string]bool
	ancestorsOf = func(name string) map[string]bool {
		if a, ok := memo[name]; ok {
			return a
		}
		memo[name] = map[string]bool{} // break cycles defensively
		set := map[string]bool{}
		for other, n := range nodes {
			for _, c := range n.Children {
				if c == name {
					set[other] = true
					for a := range ancestorsOf(other) {
						set[a] = true
					}
				}
			}
		}
		memo[name] = set
		return set
	}

	out := make(map[string][]string, len(nodes))
	for name := range nodes {
		set := ancestorsOf(name)
		names := make([]string, 0, len(set))
		for a := range set {
			names = append(names, a)
		}
		sort.Strings(names)
		out[name] = names
	}
	return out
}
