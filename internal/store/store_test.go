package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmsman/internal/state"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "helmsman.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_AgentRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, found, err := s.GetAgent(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, found)

	st := state.AgentState{
		AgentID:            "alpha",
		Position:           &state.Position{Quantity: 45, AvgEntryPrice: 100},
		TradesToday:        2,
		DailyPnL:           -120.5,
		CumulativeExposure: 4500,
		LastDecisionAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.PutAgent(ctx, st))

	got, found, err := s.GetAgent(ctx, "alpha")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, st, got)

	// Upsert overwrites in place, including dropping a closed position.
	st.Position = nil
	st.TradesToday = 3
	require.NoError(t, s.PutAgent(ctx, st))

	got, _, err = s.GetAgent(ctx, "alpha")
	require.NoError(t, err)
	assert.Nil(t, got.Position)
	assert.Equal(t, 3, got.TradesToday)

	list, err := s.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSQLiteStore_BreakerSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "helmsman.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutBreaker(ctx, state.BreakerSnapshot{
		Tripped:    true,
		TrippedAt:  &at,
		Reason:     "aggregate daily loss limit breached",
		AgentHalts: map[string]string{"alpha": "agent loss"},
	}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	snap, found, err := reopened.GetBreaker(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, snap.Tripped)
	assert.Equal(t, "aggregate daily loss limit breached", snap.Reason)
	require.NotNil(t, snap.TrippedAt)
	assert.Equal(t, at, *snap.TrippedAt)
	assert.Equal(t, "agent loss", snap.AgentHalts["alpha"])
}

func TestSQLiteStore_BreakerClearedOnReset(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	at := time.Now().UTC()
	require.NoError(t, s.PutBreaker(ctx, state.BreakerSnapshot{Tripped: true, TrippedAt: &at, Reason: "halt"}))
	require.NoError(t, s.PutBreaker(ctx, state.BreakerSnapshot{}))

	snap, found, err := s.GetBreaker(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, snap.Tripped)
	assert.Empty(t, snap.Reason)
}

func TestSQLiteStore_AuditTrail(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, rec := range []state.AuditRecord{
		{TraceID: "t1", AgentID: "alpha", Asset: "BTCUSDT", Action: "buy", Outcome: "approved"},
		{TraceID: "t2", AgentID: "beta", Asset: "ETHUSDT", Action: "sell", Outcome: "rejected", Reason: "no_open_position"},
		{TraceID: "t3", AgentID: "alpha", Asset: "BTCUSDT", Action: "buy", Outcome: "downsized", Reason: "exposure_headroom"},
	} {
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.AppendAudit(ctx, rec))
	}

	recent, err := s.RecentAudits(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "t3", recent[0].TraceID, "newest first")

	alpha, err := s.RecentAudits(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, alpha, 2)
	for _, rec := range alpha {
		assert.Equal(t, "alpha", rec.AgentID)
	}

	one, err := s.RecentAudits(ctx, "alpha", 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "t3", one[0].TraceID)
}
