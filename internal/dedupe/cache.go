// ABOUTME: Thread-safe TTL cache for suppressing broker message redeliveries
// ABOUTME: The upstream push source is at-least-once; clients must see at most once

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry stores the timestamp and list element for a seen message ID.
type cacheEntry struct {
	timestamp time.Time
	element   *list.Element
}

// Cache tracks recently seen broker message IDs so an upstream redelivery
// is dropped before it becomes a second routed message. TTL-based and
// size-limited: eviction keeps the window bounded without coordination
// between instances. A doubly-linked list maintains insertion order for
// O(1) eviction.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*cacheEntry
	order   *list.List // message IDs in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a dedupe cache with the given redelivery window and maximum
// tracked message count. A background goroutine periodically removes
// expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Seen atomically checks whether a message ID was already processed within
// the window and marks it if not. Returns true for a redelivery (drop it),
// false for a first delivery (now marked).
func (c *Cache) Seen(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[messageID]
	if ok && time.Since(entry.timestamp) < c.ttl {
		return true
	}
	c.markLocked(messageID)
	return false
}

// markLocked records a message ID. Must be called with mu held.
func (c *Cache) markLocked(messageID string) {
	now := time.Now()

	if entry, exists := c.seen[messageID]; exists {
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(messageID)
	c.seen[messageID] = &cacheEntry{timestamp: now, element: elem}
}

// Forget removes a message ID so its next delivery is treated as a first
// delivery again. Callers that fail to process a message after marking it
// use this to keep the upstream's redelivery effective.
func (c *Cache) Forget(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[messageID]
	if !ok {
		return
	}
	c.order.Remove(entry.element)
	delete(c.seen, messageID)
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	messageID, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, messageID)
}

// cleanup periodically removes expired entries until Close.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

// removeExpired drops every entry older than the window.
func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for messageID, entry := range c.seen {
		if now.Sub(entry.timestamp) > c.ttl {
			c.order.Remove(entry.element)
			delete(c.seen, messageID)
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call multiple
// times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
