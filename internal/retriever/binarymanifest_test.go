package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartgo/cartgo/internal/depmodel"
)

func writeManifestFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return "file://" + path
}

func TestFetchBinaryManifestReadsFileURL(t *testing.T) {
	url := writeManifestFile(t, `{"1.0.0": "file:///tmp/widget-1.0.0.zip"}`)

	m, err := fetchBinaryManifest(context.Background(), url)
	if err != nil {
		t.Fatalf("fetchBinaryManifest: %v", err)
	}
	if m["1.0.0"] != "file:///tmp/widget-1.0.0.zip" {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestFetchBinaryManifestRejectsInvalidJSON(t *testing.T) {
	url := writeManifestFile(t, `not json`)

	if _, err := fetchBinaryManifest(context.Background(), url); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

func TestBinaryManifestVersionsDedupesConfigSuffixedKeys(t *testing.T) {
	url := writeManifestFile(t, `{
		"1.0.0+Release": "file:///a.zip",
		"1.0.0+Debug": "file:///b.zip",
		"1.1.0": "file:///c.zip",
		"not-a-version": "file:///d.zip"
	}`)
	dep := depmodel.NewBinaryDependency(url)

	r := newRetriever(t)
	versions, err := r.binaryManifestVersions(context.Background(), dep)
	if err != nil {
		t.Fatalf("binaryManifestVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("versions = %v, want 2 entries", versions)
	}
	if versions[0] != depmodel.PinnedVersion("1.0.0") || versions[1] != depmodel.PinnedVersion("1.1.0") {
		t.Errorf("versions = %v, want [1.0.0 1.1.0] sorted", versions)
	}
}

func TestBinaryManifestVersionsEmptyManifestFails(t *testing.T) {
	url := writeManifestFile(t, `{"not-a-version": "file:///a.zip"}`)
	dep := depmodel.NewBinaryDependency(url)

	r := newRetriever(t)
	if _, err := r.binaryManifestVersions(context.Background(), dep); err == nil {
		t.Fatal("expected an error when no manifest key parses as a version")
	}
}

func TestBinaryDownloadURLPrefersConfigSpecificKey(t *testing.T) {
	m := binaryManifest{
		"1.0.0":         "file:///generic.zip",
		"1.0.0+Release": "file:///release.zip",
	}

	got, ok := binaryDownloadURL(m, "1.0.0", "Release")
	if !ok || got != "file:///release.zip" {
		t.Errorf("binaryDownloadURL with config = (%q, %v), want file:///release.zip", got, ok)
	}

	got, ok = binaryDownloadURL(m, "1.0.0", "Debug")
	if !ok || got != "file:///generic.zip" {
		t.Errorf("binaryDownloadURL falling back to bare version = (%q, %v), want file:///generic.zip", got, ok)
	}

	if _, ok := binaryDownloadURL(m, "9.9.9", ""); ok {
		t.Error("binaryDownloadURL for an unknown version should report not found")
	}
}
