// Package fingerprint computes and caches content hashes for change
// detection. Hashes are BLAKE3 and are compared against a stored baseline to
// decide whether a tracked file needs to be uploaded again; they carry no
// integrity guarantee beyond that.
package fingerprint

import (
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"
)

const chunkSize = 64 * 1024

// statKey identifies a file generation. A cached hash is valid only while
// the file's mtime and size both still match.
type statKey struct {
	mtimeNS int64
	size    int64
}

type record struct {
	key statKey
	sum string
}

// Cache maps file paths to content hashes keyed on (mtime, size).
// Safe for concurrent use; entries are self-validating so races between the
// periodic and event-triggered paths resolve as last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	records map[string]record

	// open is swapped in tests to count content reads.
	open func(path string) (io.ReadCloser, error)
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		records: make(map[string]record),
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// Hash returns the content hash for path. A missing file or any I/O error
// yields the empty string; callers treat empty as "unknown, assume changed".
// When the file's mtime and size match a cached record the stored hash is
// returned without re-reading the file.
func (c *Cache) Hash(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	key := statKey{mtimeNS: info.ModTime().UnixNano(), size: info.Size()}

	c.mu.RLock()
	rec, ok := c.records[path]
	c.mu.RUnlock()
	if ok && rec.key == key {
		return rec.sum
	}

	sum, err := c.compute(path)
	if err != nil {
		return ""
	}

	c.mu.Lock()
	c.records[path] = record{key: key, sum: sum}
	c.mu.Unlock()
	return sum
}

// Update seeds the cache entry for path with a known hash, keyed on the
// file's current stat. Used after a confirmed upload to avoid an immediate
// redundant re-hash. A missing file is ignored.
func (c *Cache) Update(path, sum string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	key := statKey{mtimeNS: info.ModTime().UnixNano(), size: info.Size()}

	c.mu.Lock()
	c.records[path] = record{key: key, sum: sum}
	c.mu.Unlock()
}

// Clear drops all cached records.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.records = make(map[string]record)
	c.mu.Unlock()
}

func (c *Cache) compute(path string) (string, error) {
	f, err := c.open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
