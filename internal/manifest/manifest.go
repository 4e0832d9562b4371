// Package manifest reads and writes the Cartfile family of line-based
// manifest formats: the source manifest (Cartfile /
// Cartfile.private) and the resolved manifest (Cartfile.resolved).
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
)

// Entry pairs a Dependency with the VersionSpecifier declared for it.
type Entry struct {
	Dependency depmodel.Dependency
	Specifier  depmodel.VersionSpecifier
}

// Manifest is an ordered list of entries, insertion order preserved as read
// from disk.
type Manifest struct {
	Entries []Entry
}

// Parse reads a Cartfile-format manifest from r.
func Parse(r io.Reader) (*Manifest, error) {
	sc := bufio.NewScanner(r)
	m := &Manifest{}
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		dep, spec, err := parseLine(line)
		if err != nil {
			return nil, &cgerrors.ManifestError{Reason: "parse failed", Detail: fmt.Sprintf("line %d: %s", lineNo, err)}
		}
		m.Entries = append(m.Entries, Entry{Dependency: dep, Specifier: spec})
	}
	if err := sc.Err(); err != nil {
		return nil, &cgerrors.ManifestError{Reason: "parse failed", Detail: err.Error()}
	}
	return m, nil
}

// stripComment removes a trailing "# ..." comment, respecting double-quoted
// sections so a "#" inside a locator string is not treated as a comment.
func stripComment(line string) string {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// parseLine parses one manifest line of the form:
//
//	<kind> "<locator>" [<specifier>]
func parseLine(line string) (depmodel.Dependency, depmodel.VersionSpecifier, error) {
	toks, err := tokenize(line)
	if err != nil {
		return depmodel.Dependency{}, depmodel.VersionSpecifier{}, err
	}
	if len(toks) < 2 {
		return depmodel.Dependency{}, depmodel.VersionSpecifier{}, fmt.Errorf("expected '<kind> \"<locator>\" [specifier]', got %q", line)
	}

	kind, locator := toks[0], unquote(toks[1])
	dep, err := buildDependency(kind, locator)
	if err != nil {
		return depmodel.Dependency{}, depmodel.VersionSpecifier{}, err
	}

	if len(toks) == 2 {
		return dep, depmodel.Any(), nil
	}

	spec, err := parseSpecifier(toks[2:])
	if err != nil {
		return depmodel.Dependency{}, depmodel.VersionSpecifier{}, err
	}
	return dep, spec, nil
}

func buildDependency(kind, locator string) (depmodel.Dependency, error) {
	switch kind {
	case "github":
		parts := strings.SplitN(locator, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return depmodel.Dependency{}, fmt.Errorf("github locator must be \"owner/name\", got %q", locator)
		}
		return depmodel.NewGitHubDependency("github.com", parts[0], parts[1]), nil
	case "git":
		return depmodel.NewGitDependency(locator), nil
	case "binary":
		return depmodel.NewBinaryDependency(locator), nil
	default:
		return depmodel.Dependency{}, fmt.Errorf("unknown dependency kind %q", kind)
	}
}

// parseSpecifier interprets the tail tokens of a manifest line as a
// VersionSpecifier: "== v", ">= v", "~> v", or a bare quoted "ref".
func parseSpecifier(toks []string) (depmodel.VersionSpecifier, error) {
	if len(toks) == 1 {
		// A single quoted token not preceded by an operator is a git reference.
		return depmodel.GitReference(unquote(toks[0])), nil
	}
	if len(toks) != 2 {
		return depmodel.VersionSpecifier{}, fmt.Errorf("malformed specifier %q", strings.Join(toks, " "))
	}
	op, raw := toks[0], unquote(toks[1])
	sv, err := depmodel.NewSemanticVersion(raw)
	if err != nil {
		return depmodel.VersionSpecifier{}, &cgerrors.ManifestError{Reason: "invalid specifier", Detail: err.Error()}
	}
	switch op {
	case "==":
		return depmodel.Exactly(sv), nil
	case ">=":
		return depmodel.AtLeast(sv), nil
	case "~>":
		return depmodel.CompatibleWith(sv), nil
	default:
		return depmodel.VersionSpecifier{}, fmt.Errorf("unknown specifier operator %q", op)
	}
}

// tokenize splits a manifest line into whitespace-separated tokens, treating
// a double-quoted span as a single token (including its quotes).
func tokenize(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '"' {
			j := i + 1
			for j < len(line) && line[j] != '"' {
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated quoted string in %q", line)
			}
			toks = append(toks, line[i:j+1])
			i = j + 1
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' {
			j++
		}
		toks = append(toks, line[i:j])
		i = j
	}
	return toks, nil
}

func unquote(tok string) string {
	return strings.Trim(tok, `"`)
}

// Merge combines a public and private manifest. A dependency declared (by
// canonical name) in both is a hard ManifestError.
func Merge(public, private *Manifest) (*Manifest, error) {
	seen := make(map[string]bool, len(public.Entries))
	out := &Manifest{Entries: make([]Entry, 0, len(public.Entries)+len(private.Entries))}
	for _, e := range public.Entries {
		seen[e.Dependency.CanonicalName()] = true
		out.Entries = append(out.Entries, e)
	}
	for _, e := range private.Entries {
		name := e.Dependency.CanonicalName()
		if seen[name] {
			return nil, &cgerrors.ManifestError{Reason: "duplicate dependency", Detail: name}
		}
		seen[name] = true
		out.Entries = append(out.Entries, e)
	}
	return out, nil
}

// sortedByName returns a copy of entries ordered by dependency name, for
// callers (like the resolved-manifest writer) that need canonical output.
func sortedByName(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Dependency.Less(out[j].Dependency) })
	return out
}
