package pipeline

import (
	"context"

	"github.com/KNICEX/decision-agent/internal/entity"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/KNICEX/decision-agent/internal/service/monitor"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(llm.Answer), args.Error(1)
}

type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) Ticker(ctx context.Context, pair exchange.TradingPair) (decimal.Decimal, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMarketService) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]exchange.Kline), args.Error(1)
}

type MockTradingService struct {
	mock.Mock
}

func (m *MockTradingService) Execute(ctx context.Context, req exchange.ExecuteReq) (exchange.ExecuteResp, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.ExecuteResp), args.Error(1)
}

func (m *MockTradingService) Position(ctx context.Context, pair exchange.TradingPair) (exchange.Position, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(exchange.Position), args.Error(1)
}

type MockCollector struct {
	mock.Mock
}

func (m *MockCollector) Collect(ctx context.Context, q news.Query) (news.Evidence, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(news.Evidence), args.Error(1)
}

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

type MockMonitor struct {
	mock.Mock
}

func (m *MockMonitor) Report(ctx context.Context, r monitor.Report) error {
	return m.Called(ctx, r).Error(0)
}
