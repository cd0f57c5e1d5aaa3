package expressions

import "sync"

// defaultCacheSize bounds how many compiled expressions each engine keeps.
// Filters arrive from API callers, so the set of keys is open-ended.
const defaultCacheSize = 1024

// boundedCache memoizes successful compilations by source text. When full it
// starts over instead of tracking recency.
type boundedCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	max     int
}

func newBoundedCache[T any](size int) *boundedCache[T] {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &boundedCache[T]{entries: make(map[string]T), max: size}
}

// getOrCompute returns the cached value for key, calling compute on a miss.
// Errors are returned as-is and never cached.
func (c *boundedCache[T]) getOrCompute(key string, compute func(string) (T, error)) (T, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := compute(key)
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[key]; ok {
		return prev, nil
	}
	if len(c.entries) >= c.max {
		c.entries = make(map[string]T)
	}
	c.entries[key] = v
	return v, nil
}

// Len reports the number of cached entries.
func (c *boundedCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
