package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helmsman/internal/risk"
	"helmsman/internal/state"
)

func newTestServer(t *testing.T) (*Server, *risk.Validator, *state.MemoryStore) {
	t.Helper()
	store := state.NewMemoryStore()
	validator := risk.NewValidator(risk.CompanyLimits{
		MaxTotalExposure:      60000,
		MaxCorrelatedExposure: 30000,
		DailyLossLimit:        3000,
	}, nil, store, risk.NewBreaker())

	srv, err := NewServer(ServerConfig{Addr: ":0", Store: store, Validator: validator})
	require.NoError(t, err)
	return srv, validator, store
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBreakerStatusAndReset(t *testing.T) {
	srv, validator, store := newTestServer(t)
	validator.Breaker().Trip("daily loss limit breached")

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/breaker", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var snap state.BreakerSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap.Tripped)
	assert.Equal(t, "daily loss limit breached", snap.Reason)

	// Operator reset clears the latch and persists the cleared state.
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/breaker/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.False(t, validator.Breaker().IsTripped())
	persisted, found, err := store.GetBreaker(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, persisted.Tripped)
}

func TestAgentListAndDecisions(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.PutAgent(ctx, state.AgentState{AgentID: "alpha", TradesToday: 2}))
	require.NoError(t, store.AppendAudit(ctx, state.AuditRecord{TraceID: "t1", AgentID: "alpha", Action: "buy", Outcome: "approved"}))

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/agents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alpha"`)

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/agents/alpha/decisions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"t1"`)

	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/agents/alpha/decisions?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
