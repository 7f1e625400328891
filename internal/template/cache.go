package template

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/certforge/certforge/internal/logging"
)

const (
	defaultMaxEntries = 100
	defaultTTL        = 24 * time.Hour
)

// CacheConfig adjusts cache behavior. Zero values select the defaults.
type CacheConfig struct {
	// MaxEntries bounds the number of cached analyses before LRU
	// eviction kicks in.
	MaxEntries int
	// TTL is how long an entry stays valid after insertion. Expiry is
	// lazy: entries are dropped when a lookup finds them stale.
	TTL time.Duration
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Size        int    `json:"size"`
	MaxEntries  int    `json:"max_entries"`
	TTLSeconds  int    `json:"ttl_seconds"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

type cacheEntry struct {
	key      string
	path     string
	analysis *Analysis
	addedAt  time.Time
}

// Cache holds template analyses keyed by path and modification time.
//
// A lookup stats the file and derives the key from the current mtime, so
// an edited template can never return its predecessor's layout; the old
// entry simply ages out. All methods are safe for concurrent use.
type Cache struct {
	mu          sync.RWMutex
	maxEntries  int
	ttl         time.Duration
	entries     map[string]*list.Element
	order       *list.List
	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
	logger      *slog.Logger

	// now is swappable so tests can control TTL expiry.
	now func() time.Time
}

// NewCache builds a Cache. A nil logger disables logging.
func NewCache(cfg CacheConfig, logger *slog.Logger) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return &Cache{
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		logger:     logging.WithComponent(logger, "template-cache"),
		now:        time.Now,
	}
}

// cacheKey derives the lookup key from the template path and its current
// modification time.
func cacheKey(path string, modTime time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d", path, modTime.UnixNano())))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached analysis for path if a fresh one exists. A
// template that has been edited, deleted, or whose entry expired counts
// as a miss.
func (c *Cache) Get(path string) (*Analysis, bool) {
	info, err := os.Stat(path)
	if err != nil {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	key := cacheKey(path, info.ModTime())

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.addedAt) > c.ttl {
		c.removeLocked(elem)
		c.expirations++
		c.misses++
		c.logger.Debug("cache entry expired", logging.String("path", path))
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return entry.analysis, true
}

// Set stores an analysis for path, keyed by the file's current mtime.
// Storing for a path that no longer exists is a no-op.
func (c *Cache) Set(path string, analysis *Analysis) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	key := cacheKey(path, info.ModTime())

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.analysis = analysis
		entry.addedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	entry := &cacheEntry{key: key, path: path, analysis: analysis, addedAt: c.now()}
	c.entries[key] = c.order.PushFront(entry)

	for len(c.entries) > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*cacheEntry)
		c.removeLocked(oldest)
		c.evictions++
		c.logger.Debug("cache entry evicted", logging.String("path", evicted.path))
	}
}

// Invalidate drops every entry for path, regardless of which mtime it was
// stored under.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*cacheEntry).path == path {
			c.removeLocked(elem)
		}
		elem = next
	}
}

// Clear drops every entry. Counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of live entries, counting expired but not yet
// collected ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats snapshots the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:        len(c.entries),
		MaxEntries:  c.maxEntries,
		TTLSeconds:  int(c.ttl / time.Second),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
}
