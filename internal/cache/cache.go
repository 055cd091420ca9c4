// Package cache implements the in-process value cache: the
// (NodeId, EndpointIndex, CommandClass, property, property_key?)-keyed
// store that the driver actor writes on unsolicited Report CCs and that
// application-facing reads consult, plus an optional durable mirror.
// Grounded on, for the mirror, librescoot-bluetooth-service/pkg/redis/
// client.go's write-through-and-publish pattern.
package cache

import (
	"fmt"
	"sync"

	"github.com/zwavelink/zwave-driver/internal/cc"
	"github.com/zwavelink/zwave-driver/internal/command"
)

// Key identifies one cached value.
type Key struct {
	NodeID        command.NodeId
	Endpoint      cc.EndpointIndex
	CommandClass  cc.CommandClassID
	Property      uint32
	PropertyKey   uint32
	HasPropertyKey bool
}

func (k Key) String() string {
	if k.HasPropertyKey {
		return fmt.Sprintf("%d/%s/%s/%d[%d]", k.NodeID, k.Endpoint, k.CommandClass, k.Property, k.PropertyKey)
	}
	return fmt.Sprintf("%d/%s/%s/%d", k.NodeID, k.Endpoint, k.CommandClass, k.Property)
}

// Mirror is an optional durable, cross-process sink for cache mutations.
// A mirror write is best-effort: a failure is logged by the caller, not
// propagated, and never blocks or fails the in-memory mutation it
// accompanies.
type Mirror interface {
	WriteAndPublish(key string, value any) error
	Delete(key string) error
}

// Cache is the reader-writer-lock-guarded value store shared between the
// driver actor (writer) and application-facing reads.
type Cache struct {
	mu     sync.RWMutex
	values map[Key]any

	mirror   Mirror
	onMirror func(err error) // invoked (never panics) when a mirror write/delete fails
}

func New() *Cache {
	return &Cache{values: make(map[Key]any)}
}

// WithMirror attaches an optional durable mirror. onMirrorError, if
// non-nil, is called with any error a mirror write/delete returns so the
// caller can log it; it must not block.
func (c *Cache) WithMirror(mirror Mirror, onMirrorError func(error)) *Cache {
	c.mirror = mirror
	c.onMirror = onMirrorError
	return c
}

// Set stores value under key and, if a mirror is attached, best-effort
// replicates the write.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.WriteAndPublish(key.String(), value); err != nil && c.onMirror != nil {
			c.onMirror(err)
		}
	}
}

// Get returns the cached value for key, if any.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Delete removes key from the cache and, if a mirror is attached,
// best-effort replicates the deletion.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Delete(key.String()); err != nil && c.onMirror != nil {
			c.onMirror(err)
		}
	}
}

// Snapshot returns a copy of every cached (key, value) pair.
func (c *Cache) Snapshot() map[Key]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Key]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// ApplyReport stores every CacheEntry a Report CC contributes, keyed by
// the node/endpoint/command-class the CC was received on.
func (c *Cache) ApplyReport(nodeID command.NodeId, endpoint cc.EndpointIndex, ccID cc.CommandClassID, entries []cc.CacheEntry) {
	for _, e := range entries {
		key := Key{NodeID: nodeID, Endpoint: endpoint, CommandClass: ccID, Property: e.Property}
		if e.PropertyKey != nil {
			key.PropertyKey = *e.PropertyKey
			key.HasPropertyKey = true
		}
		c.Set(key, e.Value)
	}
}
