// Package preview maps ephemeral preview identifiers to local dev-server
// ports. Entries expire on their own; nothing here is part of the task
// protocol's state.
package preview

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
)

// Registry is a TTL-bounded preview-id -> port mapping.
type Registry struct {
	cache *ristretto.Cache[string, int]
	ttl   time.Duration

	mu      sync.Mutex
	portMin int
	portMax int
	next    int
}

// NewRegistry builds a registry whose entries expire after ttl. Ports are
// handed out round-robin from [portMin, portMax].
func NewRegistry(ttl time.Duration, portMin, portMax int) (*Registry, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("preview ttl must be > 0")
	}
	if portMin <= 0 || portMax < portMin {
		return nil, fmt.Errorf("invalid preview port range [%d,%d]", portMin, portMax)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, int]{
		NumCounters: 10_000,
		MaxCost:     1_000, // one cost unit per mapping
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create preview cache: %w", err)
	}

	return &Registry{
		cache:   cache,
		ttl:     ttl,
		portMin: portMin,
		portMax: portMax,
		next:    portMin,
	}, nil
}

// Allocate picks the next port in the range and registers a fresh preview id
// for it.
func (r *Registry) Allocate() (string, int) {
	r.mu.Lock()
	port := r.next
	r.next++
	if r.next > r.portMax {
		r.next = r.portMin
	}
	r.mu.Unlock()

	id := uuid.NewString()
	r.cache.SetWithTTL(id, port, 1, r.ttl)
	r.cache.Wait()
	return id, port
}

// Lookup resolves a preview id to its port while the mapping is alive.
func (r *Registry) Lookup(id string) (int, bool) {
	return r.cache.Get(id)
}

// Close releases the underlying cache.
func (r *Registry) Close() {
	r.cache.Close()
}
