// Package cgtest holds small test-support helpers shared across cartgo's
// packages: golden-file comparison with an -update flag to regenerate
// fixtures.
package cgtest

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

// UpdateGolden controls whether AssertGolden (re)writes the fixture instead
// of comparing against it: go test ./... -run TestFoo -update.
var UpdateGolden = flag.Bool("update", false, "update golden test fixtures")

// AssertGolden compares got against the fixture file at
// testdata/<name>.golden, failing t if they differ. With -update, it
// writes got as the new fixture instead of comparing.
func AssertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	path := filepath.Join("testdata", name+".golden")

	if *UpdateGolden {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating testdata directory: %v", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("writing golden fixture %s: %v", path, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading golden fixture %s (run with -update to create it): %v", path, err)
	}
	if string(want) != string(got) {
		t.Errorf("%s does not match golden fixture %s\n--- got ---\n%s\n--- want ---\n%s", name, path, got, want)
	}
}
