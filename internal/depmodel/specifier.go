package depmodel

// SpecifierKind discriminates the shapes a VersionSpecifier can take.
type SpecifierKind int

const (
	// SpecAny admits every version.
	SpecAny SpecifierKind = iota
	// SpecAtLeast admits versions >= Version.
	SpecAtLeast
	// SpecCompatibleWith admits versions caret-compatible with Version.
	SpecCompatibleWith
	// SpecExactly admits only Version.
	SpecExactly
	// SpecGitReference admits only the single commit Ref resolves to.
	SpecGitReference
)

// precedence implements the same-name elimination ordering:
// gitReference > exactly > compatibleWith > atLeast > any.
func (k SpecifierKind) precedence() int {
	switch k {
	case SpecGitReference:
		return 4
	case SpecExactly:
		return 3
	case SpecCompatibleWith:
		return 2
	case SpecAtLeast:
		return 1
	default:
		return 0
	}
}

// VersionSpecifier is a predicate over versions declared in a manifest.
type VersionSpecifier struct {
	Kind    SpecifierKind
	Version SemanticVersion // meaningful for AtLeast/CompatibleWith/Exactly
	Ref     string          // meaningful for GitReference
}

// Any is the specifier admitting every version.
func Any() VersionSpecifier { return VersionSpecifier{Kind: SpecAny} }

// AtLeast admits versions >= v.
func AtLeast(v SemanticVersion) VersionSpecifier {
	return VersionSpecifier{Kind: SpecAtLeast, Version: v}
}

// CompatibleWith admits versions caret-compatible with v: >= v and < the
// next version that would break compatibility (next major, or next minor
// when major is 0). Prerelease versions are admitted only when v itself is
// a prerelease.
func CompatibleWith(v SemanticVersion) VersionSpecifier {
	return VersionSpecifier{Kind: SpecCompatibleWith, Version: v}
}

// Exactly admits only v.
func Exactly(v SemanticVersion) VersionSpecifier {
	return VersionSpecifier{Kind: SpecExactly, Version: v}
}

// GitReference admits only the commit ref resolves to.
func GitReference(ref string) VersionSpecifier {
	return VersionSpecifier{Kind: SpecGitReference, Ref: ref}
}

// HigherPrecedence reports whether s takes precedence over o under the
// same-name elimination rule.
func (s VersionSpecifier) HigherPrecedence(o VersionSpecifier) bool {
	return s.Kind.precedence() > o.Kind.precedence()
}

// Admits reports whether pv satisfies the specifier. For SpecGitReference,
// resolvedRef is the commit the Ref was resolved to by the retriever; pv
// must equal it exactly.
func (s VersionSpecifier) Admits(pv PinnedVersion, resolvedRef PinnedVersion) bool {
	switch s.Kind {
	case SpecAny:
		return true
	case SpecGitReference:
		return pv == resolvedRef
	case SpecExactly:
		sv, ok := pv.Semantic()
		return ok && sv.Equal(s.Version)
	case SpecAtLeast:
		sv, ok := pv.Semantic()
		if !ok {
			return false
		}
		if sv.IsPrerelease() && !s.Version.IsPrerelease() {
			return false
		}
		return sv.Compare(s.Version) >= 0
	case SpecCompatibleWith:
		sv, ok := pv.Semantic()
		if !ok {
			return false
		}
		if sv.IsPrerelease() && !s.Version.IsPrerelease() {
			return false
		}
		return sv.Compare(s.Version) >= 0 && sv.Compare(s.Version.nextIncompatible()) < 0
	default:
		return false
	}
}

// String renders the specifier using manifest syntax: "== v",
// ">= v", "~> v", or a quoted ref; Any renders as "".
func (s VersionSpecifier) String() string {
	switch s.Kind {
	case SpecAny:
		return ""
	case SpecAtLeast:
		return ">= " + s.Version.String()
	case SpecCompatibleWith:
		return "~> " + s.Version.String()
	case SpecExactly:
		return "== " + s.Version.String()
	case SpecGitReference:
		return `"` + s.Ref + `"`
	default:
		return ""
	}
}
