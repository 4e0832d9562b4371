package depmodel

import "regexp"

// shaLike matches a 40-hex-char git object id, or any prefix of at least 7
// of them (short ids seen from some hosts' release tooling).
var shaLike = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// PinnedVersion is a commit-ish string: either a tag that parses as a
// SemanticVersion, or a 40/SHA-like git object id.
type PinnedVersion string

// Semantic reports whether pv parses as a SemanticVersion, and returns the
// parsed value when it does.
func (pv PinnedVersion) Semantic() (SemanticVersion, bool) {
	sv, err := NewSemanticVersion(string(pv))
	if err != nil {
		return SemanticVersion{}, false
	}
	return sv, true
}

// IsCommitish reports whether pv looks like a bare git object id rather than
// a tag.
func (pv PinnedVersion) IsCommitish() bool {
	return shaLike.MatchString(string(pv))
}

func (pv PinnedVersion) String() string { return string(pv) }
