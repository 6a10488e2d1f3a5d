package empmos

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultKey is the registry key used by Default.
const DefaultKey = "default"

// Registry drives several accounts through one set of shared settings. Each
// key maps to its own Client, built on first use from the base parameters
// with per-key overrides applied. Clients are never evicted.
type Registry struct {
	base ConfigParams

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry creates a registry. The base parameters are validated right
// away so configuration mistakes surface before the first account is used.
func NewRegistry(base ConfigParams) (*Registry, error) {
	if _, err := LoadConfigWithParams(base); err != nil {
		return nil, err
	}
	return &Registry{base: base, clients: map[string]*Client{}}, nil
}

// Client returns the client stored under key, creating it from the base
// parameters merged with overrides when the key is new. Overrides are ignored
// for keys that already exist.
func (r *Registry) Client(key string, overrides ConfigParams) (*Client, error) {
	if key == "" {
		key = DefaultKey
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		return c, nil
	}
	c, err := NewClientWithParams(r.base.merge(overrides))
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", key, err)
	}
	r.clients[key] = c
	return c, nil
}

// Default returns the client stored under DefaultKey.
func (r *Registry) Default() (*Client, error) {
	return r.Client(DefaultKey, ConfigParams{})
}

// Lookup returns the client stored under key without creating one.
func (r *Registry) Lookup(key string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[key]
	return c, ok
}

// Keys returns the keys of all created clients in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.clients))
	for k := range r.clients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close releases HTTP resources of every client. Sessions are left as they are.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		c.Close()
	}
}
