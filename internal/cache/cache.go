// Package cache persists successful lyrics results in BoltDB so repeat
// queries skip the browser entirely.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/scrape"
)

var bucketName = []byte("lyrics")

// entry is the stored shape: the result plus its write time for TTL checks.
type entry struct {
	Result   scrape.Result `json:"result"`
	StoredAt time.Time     `json:"storedAt"`
}

// Cache is a TTL'd lyrics store keyed by normalized (artist, title).
type Cache struct {
	db     *bolt.DB
	ttl    time.Duration
	logger *zap.Logger
}

// Open creates or opens the cache database at path.
func Open(path string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(bucketName)
		return berr
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &Cache{db: db, ttl: ttl, logger: logger}, nil
}

// Key normalizes a (title, artist) pair into a stable cache key.
func Key(title, artist string) string {
	normalize := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
	}
	return normalize(artist) + "|" + normalize(title)
}

// Get returns the cached result for the pair, or false on miss or expiry.
// Expired entries are lazily deleted.
func (c *Cache) Get(title, artist string) (*scrape.Result, bool) {
	key := []byte(Key(title, artist))
	var e entry
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get(key)
		if raw == nil {
			return errNotFound
		}
		return json.Unmarshal(raw, &e)
	})
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.StoredAt) > c.ttl {
		if derr := c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketName).Delete(key)
		}); derr != nil && c.logger != nil {
			c.logger.Warn("delete expired cache entry", zap.Error(derr))
		}
		return nil, false
	}
	return &e.Result, true
}

// Put stores a successful result.
func (c *Cache) Put(result *scrape.Result) error {
	raw, err := json.Marshal(entry{Result: *result, StoredAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(Key(result.Title, result.Artist)), raw)
	})
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Close releases the database file.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close cache db: %w", err)
	}
	return nil
}

var errNotFound = fmt.Errorf("cache entry not found")
