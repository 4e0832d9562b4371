package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
}

func TestHashDirectoryStableAcrossCopies(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	tree := map[string]string{
		"src/main.swift":  "print(1)",
		"src/util.swift":  "func f() {}",
		"README.md":       "hello",
	}
	writeTree(t, a, tree)
	writeTree(t, b, tree)

	s := NewSession(nil)
	da, err := s.HashDirectory(a, "rev", nil)
	if err != nil {
		t.Fatalf("HashDirectory(a): %v", err)
	}
	db, err := s.HashDirectory(b, "rev", nil)
	if err != nil {
		t.Fatalf("HashDirectory(b): %v", err)
	}
	if da != db {
		t.Fatalf("identical trees under different roots should hash equal: %s vs %s", da, db)
	}
}

func TestHashDirectoryIgnoresDefaultPatterns(t *testing.T) {
	a := t.TempDir()
	writeTree(t, a, map[string]string{"src/main.swift": "print(1)"})

	s := NewSession(nil)
	before, err := s.HashDirectory(a, "rev", nil)
	if err != nil {
		t.Fatalf("HashDirectory before: %v", err)
	}

	writeTree(t, a, map[string]string{".DS_Store": "junk"})
	s2 := NewSession(nil) // fresh session: the first one memoized `a`
	after, err := s2.HashDirectory(a, "rev", nil)
	if err != nil {
		t.Fatalf("HashDirectory after: %v", err)
	}
	if before != after {
		t.Fatalf("adding an ignored file should not change the hash: %s vs %s", before, after)
	}
}

func TestHashDirectoryChangesOnContentChange(t *testing.T) {
	a := t.TempDir()
	writeTree(t, a, map[string]string{"src/main.swift": "print(1)"})
	s := NewSession(nil)
	before, err := s.HashDirectory(a, "rev", nil)
	if err != nil {
		t.Fatalf("HashDirectory before: %v", err)
	}

	writeTree(t, a, map[string]string{"src/main.swift": "print(2)"})
	s2 := NewSession(nil)
	after, err := s2.HashDirectory(a, "rev", nil)
	if err != nil {
		t.Fatalf("HashDirectory after: %v", err)
	}
	if before == after {
		t.Fatal("changing file content should change the hash")
	}
}

func TestHashFileDiffersOnContent(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.bin")
	p2 := filepath.Join(dir, "b.bin")
	os.WriteFile(p1, []byte("one"), 0o644)
	os.WriteFile(p2, []byte("two"), 0o644)

	d1, err := HashFile(p1)
	if err != nil {
		t.Fatalf("HashFile(p1): %v", err)
	}
	d2, err := HashFile(p2)
	if err != nil {
		t.Fatalf("HashFile(p2): %v", err)
	}
	if d1 == d2 {
		t.Fatal("different file contents should hash differently")
	}
}
