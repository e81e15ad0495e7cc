package jobs

import (
	"os"
	"strings"
	"sync"
)

// cacheEntry holds one loaded file.
type cacheEntry struct {
	content   string
	lineCount int
}

// fileCache memoizes context-file reads within a run. Files the runner
// writes are invalidated so later jobs see fresh content.
type fileCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int
	misses  int
}

// CacheStats reports cache effectiveness for the stats surface.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

func newFileCache() *fileCache {
	return &fileCache{entries: make(map[string]cacheEntry)}
}

func (c *fileCache) getOrLoad(path string) (cacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		c.hits++
		return e, nil
	}
	c.misses++

	data, err := os.ReadFile(path)
	if err != nil {
		return cacheEntry{}, err
	}
	content := string(data)
	e := cacheEntry{content: content, lineCount: countLines(content)}
	c.entries[path] = e
	return e, nil
}

func (c *fileCache) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

func (c *fileCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *fileCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
