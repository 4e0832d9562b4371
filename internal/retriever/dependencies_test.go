package retriever

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/cartgo/cartgo/internal/depmodel"
)

func newManifestRepo(t *testing.T, cartfile string) (dir, commit string) {
	t.Helper()
	dir, _ = newSourceRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "Cartfile"), []byte(cartfile), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cmd := exec.Command("git", "add", "Cartfile")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}
	cmd = exec.Command("git", "commit", "-m", "add Cartfile")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=cartgo-test", "GIT_AUTHOR_EMAIL=test@cartgo.invalid",
		"GIT_COMMITTER_NAME=cartgo-test", "GIT_COMMITTER_EMAIL=test@cartgo.invalid")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
	cmd = exec.Command("git", "tag", "-f", "1.0.0")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git tag -f: %v\n%s", err, out)
	}

	out, err := exec.Command("git", "-C", dir, "rev-parse", "HEAD").CombinedOutput()
	if err != nil {
		t.Fatalf("rev-parse: %v\n%s", err, out)
	}
	commit = string(out)
	return dir, commit
}

func TestDependenciesOfReadsManifestFromPinnedRevision(t *testing.T) {
	source, _ := newManifestRepo(t, `github "acme/widget" ~> 1.0`+"\n")
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	entries, err := r.DependenciesOf(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), false, "")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if len(entries) != 1 || entries[0].Dependency.CanonicalName() != "widget" {
		t.Errorf("DependenciesOf = %+v, want one widget entry", entries)
	}
}

func TestDependenciesOfMissingCartfileReturnsEmpty(t *testing.T) {
	source, _ := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	entries, err := r.DependenciesOf(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), false, "")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("DependenciesOf = %+v, want none", entries)
	}
}

func TestDependenciesOfMergesPublicAndPrivateManifests(t *testing.T) {
	source, _ := newManifestRepo(t, `github "acme/widget" ~> 1.0`+"\n")
	if err := os.WriteFile(filepath.Join(source, "Cartfile.private"), []byte(`github "acme/gadget" >= 2.0`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cmd := exec.Command("git", "add", "Cartfile.private")
	cmd.Dir = source
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}
	cmd = exec.Command("git", "commit", "-m", "add private manifest")
	cmd.Dir = source
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=cartgo-test", "GIT_AUTHOR_EMAIL=test@cartgo.invalid",
		"GIT_COMMITTER_NAME=cartgo-test", "GIT_COMMITTER_EMAIL=test@cartgo.invalid")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
	cmd = exec.Command("git", "tag", "-f", "1.0.0")
	cmd.Dir = source
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git tag -f: %v\n%s", err, out)
	}

	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	entries, err := r.DependenciesOf(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), false, "")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("DependenciesOf = %+v, want 2 merged entries", entries)
	}
}

func TestDependenciesOfBinaryDependencySkipsGitEntirely(t *testing.T) {
	r := newRetriever(t)
	// A URL a git fetch would choke on; reaching gitvcs at all is the bug.
	dep := depmodel.NewBinaryDependency("https://example.com/feeds/sprocket.json")

	entries, err := r.DependenciesOf(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), false, "")
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("DependenciesOf for a binary dependency = %+v, want none", entries)
	}
}

func TestDependenciesOfPrefersLocalCheckoutWhenRequested(t *testing.T) {
	source, _ := newManifestRepo(t, `github "acme/widget" ~> 1.0`+"\n")
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	checkoutDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(checkoutDir, "Cartfile"), []byte(`github "acme/local-edit" == 9.9.9`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := r.DependenciesOf(context.Background(), dep, depmodel.PinnedVersion("1.0.0"), true, checkoutDir)
	if err != nil {
		t.Fatalf("DependenciesOf: %v", err)
	}
	if len(entries) != 1 || entries[0].Dependency.CanonicalName() != "local-edit" {
		t.Errorf("DependenciesOf = %+v, want the checkout's local-edit entry", entries)
	}
}
