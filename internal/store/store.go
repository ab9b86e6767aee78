// Package store composes the Gorm-backed state tables and the raw-SQL audit
// log behind the single state.Store contract the engine depends on.
package store

import (
	"context"

	"helmsman/internal/state"
	"helmsman/internal/store/auditlog"
	"helmsman/internal/store/gormstore"
)

// SQLiteStore is the production Store: agent/breaker state via Gorm, the
// decision audit trail via a shared raw connection on the same file.
type SQLiteStore struct {
	gorm  *gormstore.GormStore
	audit *auditlog.Store
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	gs, err := gormstore.NewGormStore(path)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gs.SQLDB()
	if err != nil {
		gs.Close()
		return nil, err
	}
	audit, err := auditlog.NewWithDB(sqlDB)
	if err != nil {
		gs.Close()
		return nil, err
	}
	return &SQLiteStore{gorm: gs, audit: audit}, nil
}

func (s *SQLiteStore) GetAgent(ctx context.Context, agentID string) (state.AgentState, bool, error) {
	return s.gorm.GetAgent(ctx, agentID)
}

func (s *SQLiteStore) PutAgent(ctx context.Context, st state.AgentState) error {
	return s.gorm.PutAgent(ctx, st)
}

func (s *SQLiteStore) ListAgents(ctx context.Context) ([]state.AgentState, error) {
	return s.gorm.ListAgents(ctx)
}

func (s *SQLiteStore) GetBreaker(ctx context.Context) (state.BreakerSnapshot, bool, error) {
	return s.gorm.GetBreaker(ctx)
}

func (s *SQLiteStore) PutBreaker(ctx context.Context, snap state.BreakerSnapshot) error {
	return s.gorm.PutBreaker(ctx, snap)
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, rec state.AuditRecord) error {
	return s.audit.Append(ctx, rec)
}

func (s *SQLiteStore) RecentAudits(ctx context.Context, agentID string, limit int) ([]state.AuditRecord, error) {
	return s.audit.Recent(ctx, agentID, limit)
}

func (s *SQLiteStore) Close() error {
	if err := s.audit.Close(); err != nil {
		return err
	}
	return s.gorm.Close()
}

var _ state.Store = (*SQLiteStore)(nil)
