package depmodel

// ConcreteVersion is an ordered wrapper around a PinnedVersion: semantic
// versions sort first (descending, newest wins ties in the resolver's
// "pick the best candidate" step), followed by non-semantic commit-ish
// strings in lexicographic ascending order.
type ConcreteVersion struct {
	pv PinnedVersion
	sv SemanticVersion
	// semantic reports whether sv is populated.
	semantic bool
}

// NewConcreteVersion wraps a PinnedVersion, parsing it as semantic when
// possible.
func NewConcreteVersion(pv PinnedVersion) ConcreteVersion {
	sv, ok := pv.Semantic()
	return ConcreteVersion{pv: pv, sv: sv, semantic: ok}
}

// Pinned returns the underlying PinnedVersion.
func (c ConcreteVersion) Pinned() PinnedVersion { return c.pv }

// IsSemantic reports whether this version parsed as a SemanticVersion.
func (c ConcreteVersion) IsSemantic() bool { return c.semantic }

// Less orders c before o under ConcreteVersion's ordering rule: semantic
// versions first and descending among themselves, then non-semantic
// commit-ish strings, ascending lexicographically.
func (c ConcreteVersion) Less(o ConcreteVersion) bool {
	switch {
	case c.semantic && o.semantic:
		return c.sv.Compare(o.sv) > 0 // descending
	case c.semantic && !o.semantic:
		return true
	case !c.semantic && o.semantic:
		return false
	default:
		return c.pv < o.pv // ascending
	}
}

func (c ConcreteVersion) Equal(o ConcreteVersion) bool { return c.pv == o.pv }

// ConcreteVersionSlice attaches sort.Interface, ordered per ConcreteVersion.Less.
type ConcreteVersionSlice []ConcreteVersion

func (s ConcreteVersionSlice) Len() int           { return len(s) }
func (s ConcreteVersionSlice) Less(i, j int) bool { return s[i].Less(s[j]) }
func (s ConcreteVersionSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// ConcreteVersionSet is an ordered set of ConcreteVersions: duplicate
// inserts (by PinnedVersion) are ignored, and the set is always kept sorted
// per ConcreteVersion.Less so First() is O(1).
type ConcreteVersionSet struct {
	ordered []ConcreteVersion
	seen    map[PinnedVersion]struct{}
}

// NewConcreteVersionSet builds an empty set.
func NewConcreteVersionSet() *ConcreteVersionSet {
	return &ConcreteVersionSet{seen: make(map[PinnedVersion]struct{})}
}

// Insert adds v to the set if not already present, keeping the set sorted.
// Returns true if the set was changed.
func (s *ConcreteVersionSet) Insert(v ConcreteVersion) bool {
	if _, dup := s.seen[v.pv]; dup {
		return false
	}
	s.seen[v.pv] = struct{}{}

	i := 0
	for ; i < len(s.ordered); i++ {
		if v.Less(s.ordered[i]) {
			break
		}
	}
	s.ordered = append(s.ordered, ConcreteVersion{})
	copy(s.ordered[i+1:], s.ordered[i:])
	s.ordered[i] = v
	return true
}

// Len returns the number of versions in the set.
func (s *ConcreteVersionSet) Len() int { return len(s.ordered) }

// First returns the best (lowest, by ConcreteVersion.Less) candidate and
// whether the set was nonempty.
func (s *ConcreteVersionSet) First() (ConcreteVersion, bool) {
	if len(s.ordered) == 0 {
		return ConcreteVersion{}, false
	}
	return s.ordered[0], true
}

// All returns the versions in the set in sorted order. The returned slice
// must not be mutated by the caller.
func (s *ConcreteVersionSet) All() []ConcreteVersion { return s.ordered }

// Remove drops v from the set, if present.
func (s *ConcreteVersionSet) Remove(v ConcreteVersion) {
	if _, ok := s.seen[v.pv]; !ok {
		return
	}
	delete(s.seen, v.pv)
	for i, c := range s.ordered {
		if c.pv == v.pv {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy, so callers can branch the search tree: copy
// the set, pin the best candidate in the copy, keep the original intact.
func (s *ConcreteVersionSet) Clone() *ConcreteVersionSet {
	n := &ConcreteVersionSet{
		ordered: make([]ConcreteVersion, len(s.ordered)),
		seen:    make(map[PinnedVersion]struct{}, len(s.seen)),
	}
	copy(n.ordered, s.ordered)
	for k, v := range s.seen {
		n.seen[k] = v
	}
	return n
}
