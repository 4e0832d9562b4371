package versionfile

import (
	"path/filepath"
	"testing"
)

func baseRequest() Request {
	return Request{
		Commitish:     "deadbeef",
		SourceHash:    "sourcehash",
		Configuration: "Release",
		Platforms:     []string{"iOS"},
	}
}

func writeBaseFile(t *testing.T, path string) {
	t.Helper()
	f := &File{
		Commitish:     "deadbeef",
		SourceHash:    "sourcehash",
		Configuration: "Release",
		Platforms: map[string][]FrameworkRecord{
			"iOS": {{Name: "Widget", Hash: "abc123"}},
		},
	}
	if err := Write(path, f); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestMatchMissingFile(t *testing.T) {
	dir := t.TempDir()
	res, err := Match(filepath.Join(dir, ".Widget.version"), baseRequest())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Status != VersionFileNotFound {
		t.Fatalf("status = %v, want VersionFileNotFound", res.Status)
	}
}

func TestMatchExactInputsMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".Widget.version")
	writeBaseFile(t, path)

	res, err := Match(path, baseRequest())
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Status != Matching {
		t.Fatalf("status = %v, want Matching", res.Status)
	}
}

func TestMatchCommitishMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".Widget.version")
	writeBaseFile(t, path)

	req := baseRequest()
	req.Commitish = "cafef00d"
	res, err := Match(path, req)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Status != CommitishMismatch {
		t.Fatalf("status = %v, want CommitishMismatch", res.Status)
	}
}

func TestMatchConfigurationMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".Widget.version")
	writeBaseFile(t, path)

	req := baseRequest()
	req.Configuration = "Debug"
	res, err := Match(path, req)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Status != ConfigurationMismatch {
		t.Fatalf("status = %v, want ConfigurationMismatch", res.Status)
	}
}

func TestMatchPlatformMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".Widget.version")
	writeBaseFile(t, path)

	req := baseRequest()
	req.Platforms = []string{"iOS", "tvOS"}
	res, err := Match(path, req)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Status != PlatformMissing {
		t.Fatalf("status = %v, want PlatformMissing", res.Status)
	}
}

func TestMatchToolchainMismatchWhenIncompatible(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".Widget.version")
	f := &File{
		Commitish:     "deadbeef",
		SourceHash:    "sourcehash",
		Configuration: "Release",
		Platforms: map[string][]FrameworkRecord{
			"iOS": {{Name: "Widget", Hash: "abc123", ToolchainVersion: "T1"}},
		},
	}
	if err := Write(path, f); err != nil {
		t.Fatalf("Write: %v", err)
	}

	req := baseRequest()
	req.LocalToolchainVersion = "T2"
	req.ToolchainCompatible = func(local, artifact string) bool { return false }
	res, err := Match(path, req)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Status != ToolchainMismatch {
		t.Fatalf("status = %v, want ToolchainMismatch", res.Status)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".Widget.version")
	writeBaseFile(t, path)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f == nil {
		t.Fatal("Load returned nil for an existing file")
	}
	if f.Commitish != "deadbeef" || f.Configuration != "Release" {
		t.Errorf("unexpected file contents: %+v", f)
	}
	if len(f.Platforms["iOS"]) != 1 || f.Platforms["iOS"][0].Name != "Widget" {
		t.Errorf("unexpected platform records: %+v", f.Platforms)
	}
}
