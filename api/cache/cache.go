package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTTL is the default time-to-live for cached entries
var DefaultTTL = 24 * time.Hour

// Entry represents a cached item
type Entry[T any] struct {
	Value     T
	CreatedAt time.Time
}

// Cache stores values as gob files under a directory.
// Concurrent use is safe: entries are written to a temporary file and renamed into place.
type Cache[T any] struct {
	dir string
	ttl time.Duration
}

// New creates a cache rooted at dir, creating the directory if needed.
// A ttl of zero means DefaultTTL.
func New[T any](dir string, ttl time.Duration) (*Cache[T], error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache[T]{dir: dir, ttl: ttl}, nil
}

// normalizeKey converts a cache key into a filesystem-safe format
func normalizeKey(key string) string {
	// Replace any character that's not allowed with underscore
	normalized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == '/' {
			return r
		}
		return '_'
	}, key)

	// Replace consecutive dots with a single dot
	for strings.Contains(normalized, "..") {
		normalized = strings.ReplaceAll(normalized, "..", ".")
	}

	// Replace consecutive slashes with a single slash
	for strings.Contains(normalized, "//") {
		normalized = strings.ReplaceAll(normalized, "//", "/")
	}

	return strings.TrimPrefix(normalized, "/")
}

// maxPrefixLength bounds the readable part of an entry file name
const maxPrefixLength = 64

// path maps key to its entry file. The file name is the last segment of the normalized key,
// for readability, followed by the SHA-256 of the raw key; distinct keys never share a file.
func (c *Cache[T]) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	prefix := pathpkg.Base(normalizeKey(key))
	if prefix == "." || prefix == "/" {
		prefix = "entry"
	}
	if len(prefix) > maxPrefixLength {
		prefix = prefix[:maxPrefixLength]
	}
	return filepath.Join(c.dir, prefix+"-"+hex.EncodeToString(sum[:])+".gob")
}

// Get returns the cached value for key if present and not expired
func (c *Cache[T]) Get(key string) (T, bool) {
	entry, err := c.loadEntry(c.path(key))
	if err != nil || time.Since(entry.CreatedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return entry.Value, true
}

// GetOrSet retrieves a value from cache or stores it if it doesn't exist.
// Errors from fn are returned and never cached.
func (c *Cache[T]) GetOrSet(key string, fn func() (T, error), forceUpdate bool) (T, error) {
	path := c.path(key)

	if !forceUpdate {
		if entry, err := c.loadEntry(path); err == nil {
			if time.Since(entry.CreatedAt) < c.ttl {
				return entry.Value, nil
			}
		}
	}

	value, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}

	entry := Entry[T]{
		Value:     value,
		CreatedAt: time.Now(),
	}

	if err := c.saveEntry(path, entry); err != nil {
		return value, err // the value is still usable when saving fails
	}

	return value, nil
}

func (c *Cache[T]) loadEntry(path string) (*Entry[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entry Entry[T]
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (c *Cache[T]) saveEntry(path string, entry Entry[T]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := gob.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes all cached entries
func (c *Cache[T]) Clear() error {
	return os.RemoveAll(c.dir)
}
