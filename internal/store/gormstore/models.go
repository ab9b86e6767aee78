package gormstore

import (
	"gorm.io/datatypes"
)

type agentStateModel struct {
	AgentID            string         `gorm:"column:agent_id;primaryKey"`
	PositionJSON       datatypes.JSON `gorm:"column:position_json;type:TEXT"`
	TradesToday        int            `gorm:"column:trades_today"`
	DailyPnL           float64        `gorm:"column:daily_pnl"`
	CumulativeExposure float64        `gorm:"column:cumulative_exposure"`
	LastDecisionUnix   int64          `gorm:"column:last_decision_at"`
	UpdatedAtUnix      int64          `gorm:"column:updated_at"`
}

func (agentStateModel) TableName() string { return "agent_states" }

// breakerStateModel is a singleton row (id fixed at 1).
type breakerStateModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	Tripped        int            `gorm:"column:tripped"`
	TrippedAtUnix  *int64         `gorm:"column:tripped_at"`
	Reason         string         `gorm:"column:reason"`
	AgentHaltsJSON datatypes.JSON `gorm:"column:agent_halts_json;type:TEXT"`
	UpdatedAtUnix  int64          `gorm:"column:updated_at"`
}

func (breakerStateModel) TableName() string { return "breaker_state" }
