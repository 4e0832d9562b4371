package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartgo/cartgo/internal/depmodel"
)

func TestCheckoutExportsPinnedRevision(t *testing.T) {
	source, _ := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	dest := t.TempDir()
	if err := r.Checkout(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), dest); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "file.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "v1\n" {
		t.Errorf("file.txt content = %q, want %q", got, "v1\n")
	}
}
