package orchestrator

import (
	"context"

	"github.com/cartgo/cartgo/internal/depmodel"
)

// Provider is everything the Orchestrator asks of the Retriever during a
// build. *retriever.Retriever satisfies this structurally.
type Provider interface {
	GraphProvider
	Checkout(ctx context.Context, dep depmodel.Dependency, pinned depmodel.PinnedVersion, dir string) error
	InstallBinary(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, config, toolchainVersion string, platforms []string, buildDir string, rewriteSymbols func(path string) error) (bool, error)
}
