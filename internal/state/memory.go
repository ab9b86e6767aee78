package state

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a map-backed Store for tests and dry runs. It honors the
// same clone-on-read discipline as the SQLite store so callers never share
// mutable state.
type MemoryStore struct {
	mu      sync.RWMutex
	agents  map[string]AgentState
	breaker *BreakerSnapshot
	audits  []AuditRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{agents: make(map[string]AgentState)}
}

func (m *MemoryStore) GetAgent(_ context.Context, agentID string) (AgentState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.agents[agentID]
	if !ok {
		return AgentState{}, false, nil
	}
	return st.Clone(), true, nil
}

func (m *MemoryStore) PutAgent(_ context.Context, st AgentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[st.AgentID] = st.Clone()
	return nil
}

func (m *MemoryStore) ListAgents(_ context.Context) ([]AgentState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AgentState, 0, len(m.agents))
	for _, st := range m.agents {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (m *MemoryStore) GetBreaker(_ context.Context) (BreakerSnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.breaker == nil {
		return BreakerSnapshot{}, false, nil
	}
	return *m.breaker, true, nil
}

func (m *MemoryStore) PutBreaker(_ context.Context, snap BreakerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaker = &snap
	return nil
}

func (m *MemoryStore) AppendAudit(_ context.Context, rec AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, rec)
	return nil
}

func (m *MemoryStore) RecentAudits(_ context.Context, agentID string, limit int) ([]AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AuditRecord
	for i := len(m.audits) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if agentID == "" || m.audits[i].AgentID == agentID {
			out = append(out, m.audits[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
