package depmodel

import (
	"strings"
)

// Kind discriminates the three shapes a Dependency can take.
type Kind int

const (
	// KindGitHub is a git-hosted repository identified by host+owner+name.
	KindGitHub Kind = iota
	// KindGit is a raw git URL, either remote or a local path.
	KindGit
	// KindBinary is a binary manifest URL.
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindGitHub:
		return "github"
	case KindGit:
		return "git"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Dependency is a uniquely identified source of code or binary artifacts.
// It is a discriminated variant over Kind; only the fields relevant to the
// Kind are meaningful.
type Dependency struct {
	Kind Kind

	// Host, Owner, Name identify a KindGitHub dependency, e.g.
	// github.com/Owner/Name.
	Host, Owner, Name string

	// URL is the raw locator for KindGit (a git remote or local path) and
	// KindBinary (an https:// or file:// URL to a binary manifest JSON).
	URL string
}

// NewGitHubDependency builds a git-hosted dependency identified by owner and
// repo name on the given host ("github.com" when unset).
func NewGitHubDependency(host, owner, name string) Dependency {
	if host == "" {
		host = "github.com"
	}
	return Dependency{Kind: KindGitHub, Host: host, Owner: owner, Name: strings.TrimSuffix(name, ".git")}
}

// NewGitDependency builds a raw-git-URL dependency.
func NewGitDependency(url string) Dependency {
	return Dependency{Kind: KindGit, URL: url}
}

// NewBinaryDependency builds a binary-manifest dependency.
func NewBinaryDependency(url string) Dependency {
	return Dependency{Kind: KindBinary, URL: url}
}

// CanonicalName derives the dependency's display name: for git-hosted and
// raw-git dependencies, the last path component of the locator with any
// ".git" suffix stripped; for binary dependencies, the last path component
// of the manifest URL.
func (d Dependency) CanonicalName() string {
	switch d.Kind {
	case KindGitHub:
		return d.Name
	case KindGit, KindBinary:
		s := strings.TrimSuffix(strings.TrimRight(d.URL, "/"), ".git")
		if i := strings.LastIndexAny(s, "/:"); i >= 0 {
			s = s[i+1:]
		}
		return strings.TrimSuffix(s, ".git")
	default:
		return ""
	}
}

// Locator renders the identity used as the locator portion of a manifest
// line: "owner/name" for KindGitHub, the raw URL otherwise.
func (d Dependency) Locator() string {
	switch d.Kind {
	case KindGitHub:
		return d.Owner + "/" + d.Name
	default:
		return d.URL
	}
}

// Equal reports structural equality.
func (d Dependency) Equal(o Dependency) bool {
	return d == o
}

// Less orders dependencies by canonical name, as required for deterministic
// manifest serialization.
func (d Dependency) Less(o Dependency) bool {
	return d.CanonicalName() < o.CanonicalName()
}

// DependencySlice attaches sort.Interface to a []Dependency, ordered by
// CanonicalName.
type DependencySlice []Dependency

func (s DependencySlice) Len() int           { return len(s) }
func (s DependencySlice) Less(i, j int) bool { return s[i].Less(s[j]) }
func (s DependencySlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
