package tools

import (
	"sort"
	"strings"
	"sync"
	"time"

	"agenthub/internal/mcpclient"
	"agenthub/pkg/logging"
)

// cacheCleanupInterval is how often expired entries are swept when a TTL
// is configured.
const cacheCleanupInterval = 5 * time.Minute

// cacheEntry holds one resolved tool set together with the live clients
// that produced it. Entries are immutable once stored; eviction closes
// the clients.
type cacheEntry struct {
	tools     []ResolvedTool
	clients   map[string]mcpclient.Client
	createdAt time.Time
}

func (e *cacheEntry) expired(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return time.Since(e.createdAt) > ttl
}

func (e *cacheEntry) closeClients() {
	for server, c := range e.clients {
		if err := c.Close(); err != nil {
			logging.Debug("ToolCache", "Error closing client for %s: %v", server, err)
		}
	}
}

// Cache memoizes resolved tool sets per (sorted server set, user). With a
// zero TTL entries live for the process lifetime; otherwise a background
// sweep evicts stale entries and closes their clients.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewCache creates a tool cache. A ttl of zero disables eviction.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		entries:     make(map[string]*cacheEntry),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	if ttl > 0 {
		go c.cleanupLoop()
	}
	return c
}

// CacheKey derives the memoization key: the sorted, deduplicated server
// identifiers joined with "," plus the user identity. Reordering the
// enabled list therefore hits the same entry; a different user never
// does.
func CacheKey(enabled []string, userID string) string {
	ids := make([]string, 0, len(enabled))
	seen := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ",") + "|" + userID
}

// get returns the entry stored under key, or nil when absent or expired.
// The entry type is package-internal, so lookups stay inside the tools
// package; callers outside it go through the Resolver.
func (c *Cache) get(key string) *cacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.expired(c.ttl) {
		return nil
	}
	return entry
}

// put stores a resolved tool set and its clients under key. A racing
// previous entry for the same key is closed and replaced (last write
// wins; resolution is idempotent and read-only on the remote servers).
func (c *Cache) put(key string, tools []ResolvedTool, clients map[string]mcpclient.Client) {
	entry := &cacheEntry{
		tools:     tools,
		clients:   clients,
		createdAt: time.Now(),
	}

	c.mu.Lock()
	prev := c.entries[key]
	c.entries[key] = entry
	c.mu.Unlock()

	if prev != nil {
		prev.closeClients()
	}
	logging.Debug("ToolCache", "Stored %d tools under key=%s", len(tools), key)
}

// InvalidateUser drops all entries belonging to the given user and closes
// their clients. Called when a credential is revoked so stale tool sets
// do not outlive the authorization that produced them.
func (c *Cache) InvalidateUser(userID string) {
	suffix := "|" + userID

	c.mu.Lock()
	var removed []*cacheEntry
	for key, entry := range c.entries {
		if strings.HasSuffix(key, suffix) {
			removed = append(removed, entry)
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	for _, entry := range removed {
		entry.closeClients()
	}
	if len(removed) > 0 {
		logging.Debug("ToolCache", "Invalidated %d entries for user=%s",
			len(removed), logging.TruncateUserID(userID))
	}
}

// Len returns the number of live cache entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop halts the background cleanup loop and closes all cached clients.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})

	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()

	for _, entry := range entries {
		entry.closeClients()
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	var removed []*cacheEntry
	for key, entry := range c.entries {
		if entry.expired(c.ttl) {
			removed = append(removed, entry)
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	for _, entry := range removed {
		entry.closeClients()
	}
	if len(removed) > 0 {
		logging.Debug("ToolCache", "Evicted %d expired entries", len(removed))
	}
}
