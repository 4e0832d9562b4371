// Package depmodel holds the core value types of cartgo: dependencies,
// version specifiers, semantic versions, and the pinned/concrete version
// wrappers the resolver and retriever pass around.
//
// These are immutable values; nothing in this
// package touches the network or the filesystem.
package depmodel

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// SemanticVersion is a parsed (major, minor, patch, prerelease, build)
// version. Ordering follows the standard dotted rules; build metadata is
// ignored for ordering, and a prerelease is always less than the release it
// precedes.
type SemanticVersion struct {
	v *semver.Version
}

// NewSemanticVersion parses s as a semantic version. Parsing accepts an
// optional leading "v", matching the convention of git tags.
func NewSemanticVersion(s string) (SemanticVersion, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return SemanticVersion{}, errors.Wrapf(err, "not a semantic version: %q", s)
	}
	return SemanticVersion{v: v}, nil
}

// Major, Minor, Patch return the numeric dotted components.
func (s SemanticVersion) Major() int64 { return s.v.Major() }
func (s SemanticVersion) Minor() int64 { return s.v.Minor() }
func (s SemanticVersion) Patch() int64 { return s.v.Patch() }

// Prerelease returns the dash-separated prerelease identifiers, or "" if
// this is a release version.
func (s SemanticVersion) Prerelease() string { return s.v.Prerelease() }

// IsPrerelease reports whether s carries prerelease identifiers.
func (s SemanticVersion) IsPrerelease() bool { return s.v.Prerelease() != "" }

// String renders the version in its original dotted form.
func (s SemanticVersion) String() string { return s.v.Original() }

// Compare returns -1, 0, or 1 as s is less than, equal to, or greater than
// o, per semantic version precedence (build metadata ignored).
func (s SemanticVersion) Compare(o SemanticVersion) int { return s.v.Compare(o.v) }

// LessThan reports whether s sorts before o.
func (s SemanticVersion) LessThan(o SemanticVersion) bool { return s.v.LessThan(o.v) }

// Equal reports value equality, ignoring build metadata and original string
// formatting differences (e.g. "v1.0.0" == "1.0.0").
func (s SemanticVersion) Equal(o SemanticVersion) bool { return s.v.Equal(o.v) }

// nextIncompatible returns the lowest version that is NOT caret-compatible
// with s: the next major if s.Major() > 0, else the next minor.
func (s SemanticVersion) nextIncompatible() SemanticVersion {
	var bumped string
	if s.Major() > 0 {
		bumped = fmt.Sprintf("%d.0.0", s.Major()+1)
	} else {
		bumped = fmt.Sprintf("0.%d.0", s.Minor()+1)
	}
	nv, err := semver.NewVersion(bumped)
	if err != nil {
		// unreachable: bumped is always well-formed
		panic(err)
	}
	return SemanticVersion{v: nv}
}
