package retriever

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cartgo/cartgo/internal/depmodel"
)

func TestSanitizeLocatorIsFilesystemSafe(t *testing.T) {
	got := sanitizeLocator("https://example.com/acme/widget.git")
	if strings.ContainsAny(got, "/:") {
		t.Errorf("sanitizeLocator(%q) = %q, still contains a path separator", "https://example.com/acme/widget.git", got)
	}
}

func newSourceRepo(t *testing.T) (dir, commit string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}

	dir = t.TempDir()
	run := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=cartgo-test", "GIT_AUTHOR_EMAIL=test@cartgo.invalid",
			"GIT_COMMITTER_NAME=cartgo-test", "GIT_COMMITTER_EMAIL=test@cartgo.invalid")
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
		return string(out)
	}

	run("init", "--initial-branch=main")
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("v1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	run("add", "file.txt")
	run("commit", "-m", "initial")
	run("tag", "1.0.0")

	commit = strings.TrimSpace(run("rev-parse", "HEAD"))
	return dir, commit
}

func newRetriever(t *testing.T) *Retriever {
	t.Helper()
	r, err := New(Options{CacheRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestCloneOrFetchMaterializesMirror(t *testing.T) {
	source, commit := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	path, err := r.CloneOrFetch(context.Background(), dep, "")
	if err != nil {
		t.Fatalf("CloneOrFetch: %v", err)
	}
	if !isValidGitDir(path) {
		t.Fatalf("expected a valid mirror directory at %s", path)
	}

	last, err := r.disk.LastFetch(remoteURL(dep))
	if err != nil {
		t.Fatalf("LastFetch: %v", err)
	}
	if last.IsZero() {
		t.Error("expected CloneOrFetch to record a fetch timestamp")
	}
	_ = commit
}

func TestCloneOrFetchSkipsRefetchWithinFreshnessWindow(t *testing.T) {
	source, _ := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	if _, err := r.CloneOrFetch(context.Background(), dep, ""); err != nil {
		t.Fatalf("first CloneOrFetch: %v", err)
	}
	firstStamp, err := r.disk.LastFetch(remoteURL(dep))
	if err != nil {
		t.Fatalf("LastFetch: %v", err)
	}

	// Add a new tag upstream; a fresh-within-window second call must not
	// see it because no fetch is performed.
	cmd := exec.Command("git", "tag", "2.0.0")
	cmd.Dir = source
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git tag: %v\n%s", err, out)
	}

	if _, err := r.CloneOrFetch(context.Background(), dep, ""); err != nil {
		t.Fatalf("second CloneOrFetch: %v", err)
	}
	secondStamp, err := r.disk.LastFetch(remoteURL(dep))
	if err != nil {
		t.Fatalf("LastFetch: %v", err)
	}
	if !secondStamp.Equal(firstStamp) {
		t.Error("expected no refetch within the freshness window")
	}
}

func TestCloneOrFetchForcesFetchWhenCommitishMissing(t *testing.T) {
	source, _ := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	if _, err := r.CloneOrFetch(context.Background(), dep, ""); err != nil {
		t.Fatalf("first CloneOrFetch: %v", err)
	}

	cmd := exec.Command("git", "tag", "2.0.0")
	cmd.Dir = source
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git tag: %v\n%s", err, out)
	}

	if _, err := r.CloneOrFetch(context.Background(), dep, "2.0.0"); err != nil {
		t.Fatalf("CloneOrFetch with new commitish: %v", err)
	}

	ref, err := r.ResolveRef(context.Background(), dep, "2.0.0")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if ref == "" {
		t.Error("expected ResolveRef to resolve the newly fetched tag")
	}
}

func TestVersionsOfReturnsSemverTagsOnly(t *testing.T) {
	source, _ := newSourceRepo(t)
	cmd := exec.Command("git", "tag", "not-a-version")
	cmd.Dir = source
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git tag: %v\n%s", err, out)
	}

	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	versions, err := r.VersionsOf(context.Background(), dep)
	if err != nil {
		t.Fatalf("VersionsOf: %v", err)
	}
	if len(versions) != 1 || versions[0] != depmodel.PinnedVersion("1.0.0") {
		t.Errorf("VersionsOf = %v, want [1.0.0]", versions)
	}
}

func TestVersionsOfCachesAcrossCalls(t *testing.T) {
	source, _ := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	if _, err := r.VersionsOf(context.Background(), dep); err != nil {
		t.Fatalf("first VersionsOf: %v", err)
	}

	cmd := exec.Command("git", "tag", "2.0.0")
	cmd.Dir = source
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git tag: %v\n%s", err, out)
	}

	versions, err := r.VersionsOf(context.Background(), dep)
	if err != nil {
		t.Fatalf("second VersionsOf: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("expected the cached result to still report 1 version within the freshness window, got %v", versions)
	}
}

func TestResolveRefReturnsFullCommitID(t *testing.T) {
	source, commit := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	got, err := r.ResolveRef(context.Background(), dep, "1.0.0")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if string(got) != commit {
		t.Errorf("ResolveRef(1.0.0) = %s, want %s", got, commit)
	}
}

func TestResolveRefUnknownRefFails(t *testing.T) {
	source, _ := newSourceRepo(t)
	r := newRetriever(t)
	dep := depmodel.NewGitDependency(source)

	if _, err := r.ResolveRef(context.Background(), dep, "does-not-exist"); err == nil {
		t.Fatal("expected an error resolving an unknown ref")
	}
}

func TestPrefetchFetchesOnlyIncludedNames(t *testing.T) {
	sourceA, _ := newSourceRepo(t)
	sourceB, _ := newSourceRepo(t)
	r := newRetriever(t)

	depA := depmodel.NewGitDependency(sourceA)
	depB := depmodel.NewGitDependency(sourceB)

	included := map[string]bool{depA.CanonicalName(): true}
	if err := r.Prefetch(context.Background(), []depmodel.Dependency{depA, depB}, included); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}

	aStamp, err := r.disk.LastFetch(remoteURL(depA))
	if err != nil {
		t.Fatalf("LastFetch a: %v", err)
	}
	bStamp, err := r.disk.LastFetch(remoteURL(depB))
	if err != nil {
		t.Fatalf("LastFetch b: %v", err)
	}
	if aStamp.IsZero() {
		t.Error("expected depA to be prefetched")
	}
	if !bStamp.IsZero() {
		t.Error("expected depB to be skipped by the includedNames filter")
	}
}

func TestIsStaleTrueWhenNeverFetched(t *testing.T) {
	r := newRetriever(t)
	stale, err := r.isStale("https://example.com/acme/never-fetched.git")
	if err != nil {
		t.Fatalf("isStale: %v", err)
	}
	if !stale {
		t.Error("expected a never-fetched url to be stale")
	}
}

func TestIsStaleFalseJustAfterRecordFetch(t *testing.T) {
	r := newRetriever(t)
	url := "https://example.com/acme/widget.git"
	if err := r.disk.RecordFetch(url, time.Now()); err != nil {
		t.Fatalf("RecordFetch: %v", err)
	}
	stale, err := r.isStale(url)
	if err != nil {
		t.Fatalf("isStale: %v", err)
	}
	if stale {
		t.Error("expected a just-recorded fetch to be fresh")
	}
}
