package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartgo/cartgo/internal/depmodel"
)

func TestStoreBinaryThenInstallBinaryRoundTrips(t *testing.T) {
	c := NewBinaryCache(t.TempDir(), nil, nil, nil)
	dep := depmodel.NewGitHubDependency("", "acme", "widget")

	frameworkDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(frameworkDir, "widget.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	archiveURL, err := c.StoreBinary(dep, depmodel.PinnedVersion("1.0.0"), []string{frameworkDir}, "Release", "5.9")
	if err != nil {
		t.Fatalf("StoreBinary: %v", err)
	}
	if archiveURL == "" {
		t.Fatal("expected a non-empty archive URL")
	}

	buildDir := t.TempDir()
	ok, err := c.InstallBinary(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), "Release", "5.9", nil, buildDir, nil)
	if err != nil {
		t.Fatalf("InstallBinary: %v", err)
	}
	if !ok {
		t.Fatal("expected InstallBinary to report a tier-1 hit after StoreBinary")
	}

	got, err := os.ReadFile(filepath.Join(buildDir, filepath.Base(frameworkDir), "widget.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("unzipped content = %q, want %q", got, "payload")
	}
}

func TestInstallBinaryMissReturnsFalseWithoutError(t *testing.T) {
	c := NewBinaryCache(t.TempDir(), nil, nil, nil)
	dep := depmodel.NewGitHubDependency("", "acme", "widget")

	ok, err := c.InstallBinary(context.Background(), dep, depmodel.PinnedVersion("9.9.9"), "Release", "5.9", nil, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("InstallBinary: %v", err)
	}
	if ok {
		t.Fatal("expected a cache miss for an unstored version")
	}
}

func TestInstallBinaryUsesDependencyManifestForBinaryKind(t *testing.T) {
	root := t.TempDir()
	archivePath := filepath.Join(root, "widget-1.0.0.zip")

	frameworkDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(frameworkDir, "widget.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := zipPaths([]string{frameworkDir}, archivePath); err != nil {
		t.Fatalf("zipPaths: %v", err)
	}

	manifestURL := writeManifestFile(t, `{"1.0.0": "file://`+archivePath+`"}`)
	dep := depmodel.NewBinaryDependency(manifestURL)

	c := NewBinaryCache(t.TempDir(), nil, nil, nil)
	buildDir := t.TempDir()
	ok, err := c.InstallBinary(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), "", "5.9", nil, buildDir, nil)
	if err != nil {
		t.Fatalf("InstallBinary: %v", err)
	}
	if !ok {
		t.Fatal("expected InstallBinary to resolve the archive via the dependency's own manifest")
	}
}

func TestInstallBinaryRunsRewriteSymbolsOnHit(t *testing.T) {
	c := NewBinaryCache(t.TempDir(), nil, nil, nil)
	dep := depmodel.NewGitHubDependency("", "acme", "widget")

	frameworkDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(frameworkDir, "widget.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := c.StoreBinary(dep, depmodel.PinnedVersion("1.0.0"), []string{frameworkDir}, "Release", "5.9"); err != nil {
		t.Fatalf("StoreBinary: %v", err)
	}

	called := false
	_, err := c.InstallBinary(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), "Release", "5.9", nil, t.TempDir(), func(path string) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("InstallBinary: %v", err)
	}
	if !called {
		t.Error("expected rewriteSymbols to be invoked on a cache hit")
	}
}
