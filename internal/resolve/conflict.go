package resolve

import "github.com/cartgo/cartgo/internal/depmodel"

type conflictKey struct {
	name    string
	version depmodel.PinnedVersion
}

// conflictRecord is a learned no-good: this (dep, candidate) pairing is
// known to fail, and why, so sibling branches can skip straight past it
// instead of re-deriving the same rejection.
type conflictRecord struct {
	err error
}

// conflictCache memoizes (dep, candidate version) -> rejection across the
// whole search tree.
type conflictCache struct {
	byKey map[conflictKey]conflictRecord
}

func newConflictCache() *conflictCache {
	return &conflictCache{byKey: make(map[conflictKey]conflictRecord)}
}

func (c *conflictCache) lookup(name string, version depmodel.PinnedVersion) (conflictRecord, bool) {
	rec, ok := c.byKey[conflictKey{name, version}]
	return rec, ok
}

func (c *conflictCache) record(name string, version depmodel.PinnedVersion, err error) {
	c.byKey[conflictKey{name, version}] = conflictRecord{err: err}
}
