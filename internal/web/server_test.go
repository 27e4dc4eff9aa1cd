package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KNICEX/decision-agent/internal/entity"
	"github.com/KNICEX/decision-agent/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDecisionRepo struct {
	mock.Mock
}

func (m *MockDecisionRepo) Create(ctx context.Context, d entity.DecisionRecord) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDecisionRepo) UpdateStatus(ctx context.Context, id string, status string, errMsg string, orderId string) error {
	return m.Called(ctx, id, status, errMsg, orderId).Error(0)
}

func (m *MockDecisionRepo) List(ctx context.Context, limit int) ([]entity.DecisionRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]entity.DecisionRecord), args.Error(1)
}

func (m *MockDecisionRepo) FindByID(ctx context.Context, id string) (entity.DecisionRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.DecisionRecord), args.Error(1)
}

func (m *MockDecisionRepo) MaxCycleID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func sampleRecord(id string) entity.DecisionRecord {
	return entity.DecisionRecord{
		Id:           id,
		CycleId:      3,
		Symbol:       "BTC/USDT",
		Direction:    "BUY",
		LastPrice:    64250.5,
		SizeFraction: 0.25,
		Rationale:    "aligned",
		Status:       "DISPATCHED",
		OrderId:      "123",
		DecidedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Verdicts: []entity.VerdictRecord{
			{Agent: "price", Direction: "BUY", Confidence: 0.8, Rationale: "up"},
			{Agent: "news", Missing: "no evidence"},
		},
	}
}

func do(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestServer_Healthz(t *testing.T) {
	s := NewServer(":0", new(MockDecisionRepo), prometheus.NewRegistry())
	rec, body := do(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "decision_cycles_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	s := NewServer(":0", new(MockDecisionRepo), reg)
	rec, _ := do(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "decision_cycles_test_total 1")
}

func TestServer_ListDecisions(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		limit     int
		records   []entity.DecisionRecord
		err       error
		wantCode  int
		wantItems int
	}{
		{name: "default limit", target: "/api/decisions", limit: 20, records: []entity.DecisionRecord{sampleRecord("a"), sampleRecord("b")}, wantCode: http.StatusOK, wantItems: 2},
		{name: "explicit limit", target: "/api/decisions?limit=1", limit: 1, records: []entity.DecisionRecord{sampleRecord("a")}, wantCode: http.StatusOK, wantItems: 1},
		{name: "limit capped", target: "/api/decisions?limit=5000", limit: maxListLimit, records: []entity.DecisionRecord{}, wantCode: http.StatusOK},
		{name: "bad limit", target: "/api/decisions?limit=abc", wantCode: http.StatusBadRequest},
		{name: "repo failure", target: "/api/decisions", limit: 20, records: []entity.DecisionRecord(nil), err: errors.New("db locked"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(MockDecisionRepo)
			if tt.limit > 0 {
				r.On("List", mock.Anything, tt.limit).Return(tt.records, tt.err).Once()
			}
			rec, body := do(t, NewServer(":0", r, prometheus.NewRegistry()), tt.target)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				items, _ := body["data"].([]any)
				assert.Len(t, items, tt.wantItems)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestServer_GetDecision(t *testing.T) {
	r := new(MockDecisionRepo)
	r.On("FindByID", mock.Anything, "01HX").Return(sampleRecord("01HX"), nil).Once()
	r.On("FindByID", mock.Anything, "missing").Return(entity.DecisionRecord{}, repo.ErrNotFound).Once()
	s := NewServer(":0", r, prometheus.NewRegistry())

	rec, body := do(t, s, "/api/decisions/01HX")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "01HX", data["id"])
	assert.Equal(t, "BUY", data["direction"])
	assert.Equal(t, "DISPATCHED", data["status"])
	assert.Equal(t, "123", data["order_id"])
	assert.Equal(t, 64250.5, data["last_price"])
	contributing := data["contributing"].([]any)
	require.Len(t, contributing, 2)
	assert.Equal(t, "no evidence", contributing[1].(map[string]any)["missing"])

	rec, _ = do(t, s, "/api/decisions/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	r.AssertExpectations(t)
}
