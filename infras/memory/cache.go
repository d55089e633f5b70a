package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"thakajabe/shared/cache"
	"time"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a process-local cache.RedisCache. Clear accepts redis glob patterns.
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheItem
}

func NewCache() *Cache {
	return &Cache{items: map[string]cacheItem{}}
}

func (c *Cache) Save(_ context.Context, key string, value any, duration int) error {
	var data []byte

	switch v := value.(type) {
	case string:
		data = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}

		data = encoded
	}

	item := cacheItem{value: data}
	if duration > 0 {
		item.expiresAt = time.Now().Add(time.Duration(duration) * time.Second)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item

	return nil
}

func (c *Cache) Get(_ context.Context, key string, value any) error {
	c.mu.Lock()
	item, ok := c.items[key]

	if ok && !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		delete(c.items, key)

		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("failed to get cache value: %w", cache.Nil)
	}

	if target, isString := value.(*string); isString {
		*target = string(item.value)

		return nil
	}

	if err := json.Unmarshal(item.value, value); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)

	return nil
}

func (c *Cache) Clear(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matched, _ := path.Match(pattern, key); matched {
			delete(c.items, key)
		}
	}

	return nil
}

// Len reports how many keys are stored.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
