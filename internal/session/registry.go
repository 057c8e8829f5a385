package session

import "sync"

// Registry holds the single live controller per session id for the
// lifetime of the process. A restart drops the registry; controllers are
// then rebuilt from persisted progress with a fresh presentation order.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]*Controller)}
}

// Get returns the live controller for a session id, if any.
func (r *Registry) Get(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[sessionID]
	return c, ok
}

// Put registers a controller under its session id, closing any
// controller it replaces.
func (r *Registry) Put(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.controllers[c.SessionID()]; ok && old != c {
		old.Close()
	}
	r.controllers[c.SessionID()] = c
}

// Remove closes and drops the controller for a session id.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[sessionID]; ok {
		c.Close()
		delete(r.controllers, sessionID)
	}
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
