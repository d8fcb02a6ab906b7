package hub

import "sync"

// Registry maps connection ids to clients and indexes them by user.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	byUser  map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c.ID] = c
	conns, ok := r.byUser[c.UserID()]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[c.UserID()] = conns
	}
	conns[c.ID] = struct{}{}
}

// Remove deletes the connection. Removing an unknown id is a no-op that returns false.
func (r *Registry) Remove(connID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connID]
	if !ok {
		return nil, false
	}
	delete(r.clients, connID)

	if conns, ok := r.byUser[c.UserID()]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, c.UserID())
		}
	}
	return c, true
}

func (r *Registry) Get(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[connID]
}

// ByUser returns the connection ids a user currently holds.
func (r *Registry) ByUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// All returns every registered connection id.
func (r *Registry) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// clientsSnapshot returns all clients for shutdown.
func (r *Registry) clientsSnapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
