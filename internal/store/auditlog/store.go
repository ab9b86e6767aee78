// Package auditlog persists one row per validated decision outcome.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"helmsman/internal/state"
)

// Store 记录每次风控裁决，作为审计追踪（append-only）。
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	ownsDB bool
}

// New opens (or creates) the audit database at path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, ownsDB: true}, nil
}

// NewWithDB 复用外部（例如 GORM）已初始化的 SQLite 连接，避免同一文件
// 上多连接互相锁。
func NewWithDB(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("audit log: db cannot be nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS decision_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trace_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		action TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT,
		score REAL,
		confidence REAL,
		size_fraction REAL,
		approved_value REAL,
		rationale_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decision_audit_agent ON decision_audit(agent_id, created_at);`)
	return err
}

func (s *Store) Append(ctx context.Context, rec state.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("audit log store closed")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decision_audit
		 (trace_id, agent_id, asset, action, outcome, reason, score, confidence, size_fraction, approved_value, rationale_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.AgentID, rec.Asset, rec.Action, rec.Outcome, rec.Reason,
		rec.Score, rec.Confidence, rec.SizeFraction, rec.ApprovedValue,
		rec.RationaleJSON, rec.CreatedAt.Unix())
	return err
}

// Recent returns the newest records first, optionally filtered by agent.
func (s *Store) Recent(ctx context.Context, agentID string, limit int) ([]state.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("audit log store closed")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT trace_id, agent_id, asset, action, outcome, reason, score, confidence, size_fraction, approved_value, rationale_json, created_at
		  FROM decision_audit`
	args := []any{}
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []state.AuditRecord
	for rows.Next() {
		var rec state.AuditRecord
		var reason, rationale sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.TraceID, &rec.AgentID, &rec.Asset, &rec.Action, &rec.Outcome,
			&reason, &rec.Score, &rec.Confidence, &rec.SizeFraction, &rec.ApprovedValue,
			&rationale, &createdAt); err != nil {
			return nil, err
		}
		rec.Reason = reason.String
		rec.RationaleJSON = rationale.String
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil || !s.ownsDB {
		s.db = nil
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
