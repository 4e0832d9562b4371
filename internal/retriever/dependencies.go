package retriever

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cartgo/cartgo/internal/depmodel"
	"github.com/cartgo/cartgo/internal/gitvcs"
	"github.com/cartgo/cartgo/internal/manifest"
)

// DependenciesOf reads the transitive manifest declared by dep at version.
// A binary dependency has no source tree and therefore no transitive
// Cartfile, so it always reports no dependencies without touching the
// network. When tryCheckout is true and a writable checkout for dep already
// exists on disk (checkoutDir), that working copy is preferred over
// re-exporting the pinned revision from the mirror — it may carry local
// edits a developer is iterating on.
func (r *Retriever) DependenciesOf(ctx context.Context, dep depmodel.Dependency, version depmodel.PinnedVersion, tryCheckout bool, checkoutDir string) ([]manifest.Entry, error) {
	if dep.Kind == depmodel.KindBinary {
		return nil, nil
	}

	if tryCheckout && checkoutDir != "" {
		if m, ok, err := r.readManifestFrom(checkoutDir); err != nil {
			return nil, err
		} else if ok {
			return m.Entries, nil
		}
	}

	url := remoteURL(dep)
	path, err := r.CloneOrFetch(ctx, dep, string(version))
	if err != nil {
		return nil, err
	}
	repo, err := gitvcs.Open(url, path)
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "cartgo-manifest-read-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	if err := repo.ExportTree(ctx, string(version), tmp); err != nil {
		return nil, err
	}
	m, ok, err := r.readManifestFrom(tmp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return m.Entries, nil
}

func (r *Retriever) readManifestFrom(dir string) (*manifest.Manifest, bool, error) {
	pub, err := openAndParse(filepath.Join(dir, "Cartfile"))
	if err != nil {
		return nil, false, err
	}
	if pub == nil {
		return &manifest.Manifest{}, false, nil
	}
	priv, err := openAndParse(filepath.Join(dir, "Cartfile.private"))
	if err != nil {
		return nil, false, err
	}
	if priv == nil {
		return pub, true, nil
	}
	merged, err := manifest.Merge(pub, priv)
	if err != nil {
		return nil, false, err
	}
	return merged, true, nil
}

func openAndParse(path string) (*manifest.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return manifest.Parse(f)
}
