// Package versionfile implements component C4: the cache-validity record
// that pairs a produced artifact with the inputs that produced it, and the
// matching algorithm that decides cache-hit vs rebuild.
package versionfile

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/filelock"
	"github.com/cartgo/cartgo/internal/txnwriter"
)

// FrameworkRecord is one built framework's recorded hash and toolchain
// marker for a single platform.
type FrameworkRecord struct {
	Name             string `json:"name"`
	Hash             string `json:"hash"`
	ToolchainVersion string `json:"toolchainVersion,omitempty"`
}

// File is the JSON record stored at Build/.<dep>.version.
type File struct {
	Commitish                string                       `json:"commitish"`
	SourceHash               string                       `json:"sourceHash,omitempty"`
	ResolvedDependenciesHash string                       `json:"resolvedDependenciesHash,omitempty"`
	Configuration            string                       `json:"configuration"`
	Platforms                map[string][]FrameworkRecord `json:"-"`
}

// MarshalJSON flattens Platforms into top-level keys, sorted, matching
// "serialize pretty-printed JSON, sorted keys".
func (f *File) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"commitish":     f.Commitish,
		"configuration": f.Configuration,
	}
	if f.SourceHash != "" {
		m["sourceHash"] = f.SourceHash
	}
	if f.ResolvedDependenciesHash != "" {
		m["resolvedDependenciesHash"] = f.ResolvedDependenciesHash
	}
	platforms := make([]string, 0, len(f.Platforms))
	for p := range f.Platforms {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		m[p] = f.Platforms[p]
	}
	return marshalSortedKeys(m)
}

// UnmarshalJSON reads the fixed fields and treats every other top-level key
// as a platform's framework-record list.
func (f *File) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	f.Platforms = make(map[string][]FrameworkRecord)
	for k, raw := range m {
		switch k {
		case "commitish":
			if err := json.Unmarshal(raw, &f.Commitish); err != nil {
				return err
			}
		case "sourceHash":
			if err := json.Unmarshal(raw, &f.SourceHash); err != nil {
				return err
			}
		case "resolvedDependenciesHash":
			if err := json.Unmarshal(raw, &f.ResolvedDependenciesHash); err != nil {
				return err
			}
		case "configuration":
			if err := json.Unmarshal(raw, &f.Configuration); err != nil {
				return err
			}
		default:
			var recs []FrameworkRecord
			if err := json.Unmarshal(raw, &recs); err != nil {
				return err
			}
			f.Platforms[k] = recs
		}
	}
	return nil
}

func marshalSortedKeys(m map[string]interface{}) ([]byte, error) {
	// encoding/json already sorts map[string]... keys when marshaling, but
	// MarshalIndent is used by the caller (Write) for pretty-printing; this
	// helper exists so MarshalJSON and Write share one code path.
	return json.Marshal(m)
}

// Load reads a version file from disk. A missing file is reported through
// the caller's Match call (VersionFileNotFound), not as a Go error, so Load
// returns (nil, nil) when the file does not exist.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cgerrors.ReadFailed(path, err)
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, cgerrors.ReadFailed(path, err)
	}
	return &f, nil
}

// Write serializes f as pretty-printed, sorted-key JSON and writes it
// atomically, under a file lock on path.
func Write(path string, f *File) error {
	return filelock.WithLock(context.Background(), path+".lock", 0, func() error {
		b, err := f.MarshalJSON()
		if err != nil {
			return cgerrors.WriteFailed(path, err)
		}
		var pretty map[string]interface{}
		if err := json.Unmarshal(b, &pretty); err != nil {
			return cgerrors.WriteFailed(path, err)
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return cgerrors.WriteFailed(path, err)
		}
		out = append(out, '\n')
		return txnwriter.WriteFile(path, out, 0o644)
	})
}
