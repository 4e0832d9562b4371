package retriever

import (
	"context"

	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/gitvcs"
)

// Checkout materializes dep's pinned revision as a writable working tree at
// dir, extracting it over dir's existing contents; files in dir that are
// not part of the revision are not removed.
func (r *Retriever) Checkout(ctx context.Context, dep depmodel.Dependency, pinned depmodel.PinnedVersion, dir string) error {
	url := remoteURL(dep)
	path, err := r.CloneOrFetch(ctx, dep, string(pinned))
	if err != nil {
		return err
	}
	repo, err := gitvcs.Open(url, path)
	if err != nil {
		return err
	}
	return repo.ExportTree(ctx, string(pinned), dir)
}
