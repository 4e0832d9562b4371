package orchestrator

import (
	"context"
	"testing"

	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/manifest"
)

type fakeGraphProvider struct {
	children map[string][]string // canonical name -> direct children canonical names
}

func (f *fakeGraphProvider) DependenciesOf(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, tryCheckout bool, checkoutDir string) ([]manifest.Entry, error) {
	var entries []manifest.Entry
	for _, child := range f.children[dep.CanonicalName()] {
		entries = append(entries, manifest.Entry{
			Dependency: gh(child),
			Specifier:  depmodel.Any(),
		})
	}
	return entries, nil
}

// gh builds a minimal GitHub dependency for tests.
func gh(name string) depmodel.Dependency {
	return depmodel.NewGitHubDependency("github.com", "acme", name)
}

func resolvedOf(names ...string) *manifest.Resolved {
	r := &manifest.Resolved{}
	for _, n := range names {
		r.Entries = append(r.Entries, manifest.ResolvedEntry{Dependency: gh(n), Pinned: depmodel.PinnedVersion("1.0.0")})
	}
	return r
}

func TestBuildGraphLevelsLinearChain(t *testing.T) {
	// A -> B -> C, C is a leaf.
	provider := &fakeGraphProvider{children: map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {},
	}}
	g, err := BuildGraph(context.Background(), resolvedOf("A", "B", "C"), provider)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.Nodes["C"].Level != 0 || g.Nodes["B"].Level != 1 || g.Nodes["A"].Level != 2 {
		t.Fatalf("unexpected levels: C=%d B=%d A=%d", g.Nodes["C"].Level, g.Nodes["B"].Level, g.Nodes["A"].Level)
	}
	if len(g.ByLevel) != 3 || g.ByLevel[0][0] != "C" || g.ByLevel[1][0] != "B" || g.ByLevel[2][0] != "A" {
		t.Fatalf("unexpected ByLevel: %v", g.ByLevel)
	}
}

func TestBuildGraphAncestorsForRebuildPropagation(t *testing.T) {
	// A -> B -> C, A -> C directly too.
	provider := &fakeGraphProvider{children: map[string][]string{
		"A": {"B", "C"},
		"B": {"C"},
		"C": {},
	}}
	g, err := BuildGraph(context.Background(), resolvedOf("A", "B", "C"), provider)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	ancestors := g.Ancestors["C"]
	if len(ancestors) != 2 || ancestors[0] != "A" || ancestors[1] != "B" {
		t.Fatalf("unexpected ancestors of C: %v", ancestors)
	}
}

func TestBuildGraphCycleRejected(t *testing.T) {
	provider := &fakeGraphProvider{children: map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}}
	_, err := BuildGraph(context.Background(), resolvedOf("A", "B"), provider)
	if err == nil {
		t.Fatal("expected a cycle error, got nil")
	}
}
