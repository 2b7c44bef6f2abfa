package notify

import "sync"

// Cache maps notification keys to their accumulating state, and owns the
// process-wide suppression state (foreground conversation + backgrounded
// flag). All access goes through its lock; no other layer mutates these
// directly.
type Cache struct {
	mu           sync.Mutex
	active       map[string]*ChatNotification
	foreground   string
	backgrounded bool
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{active: make(map[string]*ChatNotification)}
}

// GetOrCreate returns the state for key, inserting the factory's result if
// absent. Read-check-insert is atomic: concurrent runs for the same key get
// the same state object, never duplicates.
func (c *Cache) GetOrCreate(key string, factory func() *ChatNotification) *ChatNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.active[key]; ok {
		return n
	}
	n := factory()
	c.active[key] = n
	return n
}

// Get returns the state for key, if present.
func (c *Cache) Get(key string) (*ChatNotification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.active[key]
	return n, ok
}

// Remove drops the state for key unconditionally. Called on explicit
// dismissal and, by policy, when a conversation becomes foregrounded.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.active, key)
	c.mu.Unlock()
}

// Len returns the number of active notification states.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Active returns the current states in unspecified order.
func (c *Cache) Active() []*ChatNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatNotification, 0, len(c.active))
	for _, n := range c.active {
		out = append(out, n)
	}
	return out
}

// SetForeground records the currently foregrounded conversation key.
// An empty key clears suppression.
func (c *Cache) SetForeground(key string) {
	c.mu.Lock()
	c.foreground = key
	c.mu.Unlock()
}

// Foreground returns the currently foregrounded conversation key.
func (c *Cache) Foreground() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.foreground
}

// SetBackgrounded records whether the application UI is backgrounded.
func (c *Cache) SetBackgrounded(bg bool) {
	c.mu.Lock()
	c.backgrounded = bg
	c.mu.Unlock()
}

// Suppressed reports whether notifications for key must be withheld:
// the key is foregrounded and the app is active. Backgrounding while a
// conversation is nominally open must not suppress.
func (c *Cache) Suppressed(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return key == c.foreground && c.foreground != "" && !c.backgrounded
}
