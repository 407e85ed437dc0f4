package agent

import "sync"

// Registry hands out one Agent per session ID, creating agents on first
// use. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	agents   map[string]*Agent
	newAgent func() *Agent
}

// NewRegistry builds a registry that constructs agents with newAgent.
func NewRegistry(newAgent func() *Agent) *Registry {
	return &Registry{
		agents:   make(map[string]*Agent),
		newAgent: newAgent,
	}
}

// Get returns the agent for sessionID, creating it if needed.
func (r *Registry) Get(sessionID string) *Agent {
	r.mu.RLock()
	a, ok := r.agents[sessionID]
	r.mu.RUnlock()
	if ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[sessionID]; ok {
		return a
	}
	a = r.newAgent()
	r.agents[sessionID] = a
	return a
}

// Lookup returns the agent for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[sessionID]
	return a, ok
}

// Drop forgets the session's agent and its history.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, sessionID)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
