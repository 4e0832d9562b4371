// Package diskcache persists the Retriever's process-spanning memoized
// state: per-URL fetch-cache timestamps and remote version-list snapshots,
// so a freshly started cartgo process can skip redundant network calls
// within the freshness window.
//
// Backed by a single BoltDB file under the cache root, two buckets: one for
// fetch timestamps, one for memoized version lists.
package diskcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var (
	bucketFetchTimes = []byte("fetch-times")
	bucketVersions   = []byte("versions")
)

// Cache wraps a single BoltDB file under <cacheRoot>/cartgo-cache.db.
type Cache struct {
	db *bolt.DB
}

// Open creates (if absent) and opens the cache database under cacheRoot.
func Open(cacheRoot string) (*Cache, error) {
	if err := os.MkdirAll(cacheRoot, 0o777); err != nil {
		return nil, errors.Wrapf(err, "creating cache root %s", cacheRoot)
	}
	path := filepath.Join(cacheRoot, "cartgo-cache.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening disk cache %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketFetchTimes); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketVersions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing disk cache buckets")
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying BoltDB file.
func (c *Cache) Close() error { return c.db.Close() }

// LastFetch returns the last recorded fetch time for url, or the zero time
// if none is recorded.
func (c *Cache) LastFetch(url string) (time.Time, error) {
	var t time.Time
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketFetchTimes).Get([]byte(url))
		if v == nil {
			return nil
		}
		ts, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return err
		}
		t = ts
		return nil
	})
	return t, err
}

// RecordFetch stamps url with at, monotonic-write (later reads always see a
// time >= any previously recorded value for this key: an at earlier than
// the recorded time is ignored).
func (c *Cache) RecordFetch(url string, at time.Time) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFetchTimes)
		if prev := b.Get([]byte(url)); prev != nil {
			if ts, err := time.Parse(time.RFC3339Nano, string(prev)); err == nil && ts.After(at) {
				return nil
			}
		}
		return b.Put([]byte(url), []byte(at.Format(time.RFC3339Nano)))
	})
}

// Versions returns the memoized version list for url, if any was stored.
func (c *Cache) Versions(url string) ([]string, bool, error) {
	var out []string
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketVersions).Get([]byte(url))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &out)
	})
	return out, found, err
}

// PutVersions stores the version list for url, overwriting any prior entry.
func (c *Cache) PutVersions(url string, versions []string) error {
	b, err := json.Marshal(versions)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVersions).Put([]byte(url), b)
	})
}
