package txnwriter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileCreatesParentDirectory(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "nested", "dir", "file.txt")

	if err := WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q, want %q", got, "hello")
	}
}

func TestWriteFileLeavesNoTempFileBehind(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.txt")

	if err := WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "file.txt" {
		t.Fatalf("expected exactly file.txt in %s, got %v", root, entries)
	}
}

func TestWriteFileOverwritesExistingContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.txt")

	if err := WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile v1: %v", err)
	}
	if err := WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile v2: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("content = %q, want %q", got, "v2")
	}
}

func TestWriteFileAppliesPermissions(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.txt")

	if err := WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}
