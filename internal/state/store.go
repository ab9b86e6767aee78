package state

import "context"

// Store persists AgentState and the breaker snapshot across restarts. The
// engine only needs get/put semantics keyed by agent_id plus a singleton slot
// for the breaker; the storage engine behind it is an implementation detail.
type Store interface {
	GetAgent(ctx context.Context, agentID string) (AgentState, bool, error)
	PutAgent(ctx context.Context, st AgentState) error
	ListAgents(ctx context.Context) ([]AgentState, error)

	GetBreaker(ctx context.Context) (BreakerSnapshot, bool, error)
	PutBreaker(ctx context.Context, snap BreakerSnapshot) error

	AppendAudit(ctx context.Context, rec AuditRecord) error
	RecentAudits(ctx context.Context, agentID string, limit int) ([]AuditRecord, error)

	Close() error
}
