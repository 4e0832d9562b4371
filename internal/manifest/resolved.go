package manifest

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cartgo/cartgo/internal/cgerrors"
	"github.com/cartgo/cartgo/internal/depmodel"
)

// ResolvedEntry pairs a Dependency with the exact revision pinned for it.
type ResolvedEntry struct {
	Dependency depmodel.Dependency
	Pinned     depmodel.PinnedVersion
}

// Resolved is the output of the resolver: one PinnedVersion per dependency,
// transitively closed.
type Resolved struct {
	Entries []ResolvedEntry
}

// ToMap builds a lookup keyed by CanonicalName.
func (r *Resolved) ToMap() map[string]depmodel.PinnedVersion {
	out := make(map[string]depmodel.PinnedVersion, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Dependency.CanonicalName()] = e.Pinned
	}
	return out
}

// WriteResolved serializes a resolved manifest in canonical form: one entry
// per line, dependencies sorted by name, specifier rendered as a quoted
// exact version literal.
func WriteResolved(w io.Writer, r *Resolved) error {
	entries := make([]ResolvedEntry, len(r.Entries))
	copy(entries, r.Entries)
	sortResolvedByName(entries)

	bw := bufio.NewWriter(w)
	for _, e := range entries {
		kind := e.Dependency.Kind.String()
		if _, err := fmt.Fprintf(bw, "%s %q %q\n", kind, e.Dependency.Locator(), string(e.Pinned)); err != nil {
			return cgerrors.WriteFailed("<resolved manifest>", err)
		}
	}
	return bw.Flush()
}

func sortResolvedByName(entries []ResolvedEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Dependency.Less(entries[j-1].Dependency); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// ParseResolved reads a Cartfile.resolved-format file: same kind+locator
// grammar as the source manifest, but the third token is always a quoted
// literal pinned version rather than a specifier operator.
func ParseResolved(r io.Reader) (*Resolved, error) {
	sc := bufio.NewScanner(r)
	res := &Resolved{}
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		toks, err := tokenize(line)
		if err != nil {
			return nil, &cgerrors.ManifestError{Reason: "parse failed", Detail: fmt.Sprintf("line %d: %s", lineNo, err)}
		}
		toks = trimEmpty(toks)
		if len(toks) == 0 {
			continue
		}
		if len(toks) != 3 {
			return nil, &cgerrors.ManifestError{Reason: "parse failed", Detail: fmt.Sprintf("line %d: expected '<kind> \"<locator>\" \"<version>\"'", lineNo)}
		}
		dep, err := buildDependency(toks[0], unquote(toks[1]))
		if err != nil {
			return nil, &cgerrors.ManifestError{Reason: "parse failed", Detail: fmt.Sprintf("line %d: %s", lineNo, err)}
		}
		res.Entries = append(res.Entries, ResolvedEntry{
			Dependency: dep,
			Pinned:     depmodel.PinnedVersion(unquote(toks[2])),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, &cgerrors.ManifestError{Reason: "parse failed", Detail: err.Error()}
	}
	return res, nil
}

func trimEmpty(toks []string) []string {
	out := toks[:0]
	for _, t := range toks {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
