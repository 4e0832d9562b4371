// Package fingerprint computes stable content digests of source trees and
// binary files.
package fingerprint

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/karrick/godirwalk"
)

// Digest is a 32-byte content digest.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(d)*2)
	for i, b := range d {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0xf]
	}
	return string(buf)
}

// Session groups the memoized state shared across a process run: the
// directory-hash cache and a logger for ignore-file read failures.
//
// This follows a "process-wide caches → explicit handle types" pattern:
// callers construct one Session and pass it down rather than relying on
// package-level globals.
type Session struct {
	mu      sync.Mutex
	dirHash map[string]Digest
	onWarn  func(error)
}

// NewSession returns a Session. onWarn, if non-nil, is called with
// non-aborting errors (e.g. a .gitignore file that exists but cannot be
// read) as they occur.
func NewSession(onWarn func(error)) *Session {
	return &Session{dirHash: make(map[string]Digest), onWarn: onWarn}
}

// HashFile returns the digest of a single file's bytes. Not memoized — a
// single file's hash is cheap relative to the I/O already paid enumerating
// it.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, cgerrors.ReadFailed(path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Digest{}, cgerrors.ReadFailed(path, err)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// HashDirectory computes a stable digest of dir's tree content under the
// given extra ignore patterns (merged with the default ignore set and any
// .gitignore files found along the way). The
// revision string is accepted for API parity with the Retriever (callers
// typically hash a specific checked-out commit) but does not itself affect
// the digest — content is what's hashed, not the revision label.
func (s *Session) HashDirectory(dir string, revision string, extraIgnores []string) (Digest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Digest{}, cgerrors.ReadFailed(dir, err)
	}

	s.mu.Lock()
	if d, ok := s.dirHash[abs]; ok {
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	h := sha256.New()
	stack := newIgnoreStack(extraIgnores)
	if err := s.hashDirInto(h, abs, "", stack); err != nil {
		return Digest{}, err
	}

	var d Digest
	copy(d[:], h.Sum(nil))

	s.mu.Lock()
	s.dirHash[abs] = d
	s.mu.Unlock()
	return d, nil
}

// hashDirInto recurses through dir (absolute path), writing file contents
// into the shared hash.Hash h in sorted order, skipping anything the
// ignore stack excludes. relPrefix is dir's path relative to the hash root,
// slash separated, "" at the root.
func (s *Session) hashDirInto(h io.Writer, dir, relPrefix string, stack ignoreStack) error {
	stack = stack.push(dir, s.onWarn)

	scratch := make([]byte, godirwalk.MinimumScratchBufferSize)
	entries, err := godirwalk.ReadDirents(dir, scratch)
	if err != nil {
		return cgerrors.ReadFailed(dir, err)
	}

	names := make([]string, 0, len(entries))
	byName := make(map[string]*godirwalk.Dirent, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
		byName[e.Name()] = e
	}
	names = sortedNames(names)

	for _, name := range names {
		e := byName[name]
		rel := name
		if relPrefix != "" {
			rel = relPrefix + "/" + name
		}
		childPath := filepath.Join(dir, name)

		isDir := e.IsDir()
		if stack.matches(withTrailingSlashIf(rel, isDir)) {
			continue
		}

		switch {
		case isDir:
			if err := s.hashDirInto(h, childPath, rel, stack); err != nil {
				return err
			}
		case e.IsRegular():
			f, err := os.Open(childPath)
			if err != nil {
				return cgerrors.ReadFailed(childPath, err)
			}
			_, err = io.Copy(h, f)
			f.Close()
			if err != nil {
				return cgerrors.ReadFailed(childPath, err)
			}
		default:
			// symlinks and special files are ignored.
		}
	}
	return nil
}

func withTrailingSlashIf(rel string, isDir bool) string {
	if isDir {
		return rel + "/"
	}
	return rel
}
