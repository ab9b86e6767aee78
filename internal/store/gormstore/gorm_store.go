package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"helmsman/internal/state"

	_ "modernc.org/sqlite"
)

const breakerRowID = 1

// GormStore persists AgentState and the breaker singleton via Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 初始化存储。WAL + busy_timeout 允许 HTTP 只读查询与
// 交易循环并存而不互相锁死。
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&agentStateModel{}, &breakerStateModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// SQLDB exposes the underlying *sql.DB so the audit log can share the
// connection instead of opening a second one against the same file.
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	return s.db.DB()
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) GetAgent(ctx context.Context, agentID string) (state.AgentState, bool, error) {
	var m agentStateModel
	err := s.db.WithContext(ctx).First(&m, "agent_id = ?", agentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return state.AgentState{}, false, nil
	}
	if err != nil {
		return state.AgentState{}, false, err
	}
	st, err := toAgentState(m)
	if err != nil {
		return state.AgentState{}, false, err
	}
	return st, true, nil
}

func (s *GormStore) PutAgent(ctx context.Context, st state.AgentState) error {
	m, err := fromAgentState(st)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			UpdateAll: true,
		}).
		Create(&m).Error
}

func (s *GormStore) ListAgents(ctx context.Context) ([]state.AgentState, error) {
	var models []agentStateModel
	if err := s.db.WithContext(ctx).Order("agent_id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]state.AgentState, 0, len(models))
	for _, m := range models {
		st, err := toAgentState(m)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *GormStore) GetBreaker(ctx context.Context) (state.BreakerSnapshot, bool, error) {
	var m breakerStateModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", breakerRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return state.BreakerSnapshot{}, false, nil
	}
	if err != nil {
		return state.BreakerSnapshot{}, false, err
	}
	snap := state.BreakerSnapshot{
		Tripped: m.Tripped != 0,
		Reason:  m.Reason,
	}
	if m.TrippedAtUnix != nil {
		at := time.Unix(*m.TrippedAtUnix, 0).UTC()
		snap.TrippedAt = &at
	}
	if len(m.AgentHaltsJSON) > 0 {
		if err := json.Unmarshal(m.AgentHaltsJSON, &snap.AgentHalts); err != nil {
			return state.BreakerSnapshot{}, false, fmt.Errorf("decoding agent halts: %w", err)
		}
	}
	return snap, true, nil
}

func (s *GormStore) PutBreaker(ctx context.Context, snap state.BreakerSnapshot) error {
	m := breakerStateModel{
		ID:            breakerRowID,
		Reason:        snap.Reason,
		UpdatedAtUnix: time.Now().Unix(),
	}
	if snap.Tripped {
		m.Tripped = 1
	}
	if snap.TrippedAt != nil {
		unix := snap.TrippedAt.Unix()
		m.TrippedAtUnix = &unix
	}
	if len(snap.AgentHalts) > 0 {
		raw, err := json.Marshal(snap.AgentHalts)
		if err != nil {
			return err
		}
		m.AgentHaltsJSON = datatypes.JSON(raw)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&m).Error
}

func toAgentState(m agentStateModel) (state.AgentState, error) {
	st := state.AgentState{
		AgentID:            m.AgentID,
		TradesToday:        m.TradesToday,
		DailyPnL:           m.DailyPnL,
		CumulativeExposure: m.CumulativeExposure,
	}
	if m.LastDecisionUnix > 0 {
		st.LastDecisionAt = time.Unix(m.LastDecisionUnix, 0).UTC()
	}
	if len(m.PositionJSON) > 0 && string(m.PositionJSON) != "null" {
		var p state.Position
		if err := json.Unmarshal(m.PositionJSON, &p); err != nil {
			return state.AgentState{}, fmt.Errorf("decoding position for %s: %w", m.AgentID, err)
		}
		if p.Quantity > 0 {
			st.Position = &p
		}
	}
	return st, nil
}

func fromAgentState(st state.AgentState) (agentStateModel, error) {
	m := agentStateModel{
		AgentID:            st.AgentID,
		TradesToday:        st.TradesToday,
		DailyPnL:           st.DailyPnL,
		CumulativeExposure: st.CumulativeExposure,
		UpdatedAtUnix:      time.Now().Unix(),
	}
	if !st.LastDecisionAt.IsZero() {
		m.LastDecisionUnix = st.LastDecisionAt.Unix()
	}
	if st.Position != nil {
		raw, err := json.Marshal(st.Position)
		if err != nil {
			return agentStateModel{}, err
		}
		m.PositionJSON = datatypes.JSON(raw)
	}
	return m, nil
}
