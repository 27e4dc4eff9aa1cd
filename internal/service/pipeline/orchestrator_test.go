package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/KNICEX/decision-agent/internal/entity"
	"github.com/KNICEX/decision-agent/internal/errs"
	"github.com/KNICEX/decision-agent/internal/service/agent"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/exchange/klinetest"
	"github.com/KNICEX/decision-agent/internal/service/indicator"
	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/KNICEX/decision-agent/internal/service/monitor"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	btc       = exchange.TradingPair{Base: "BTC", Quote: "USDT"}
	cycleTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	allFrames = []string{"5m", "15m", "30m", "60m", "240m", "24h"}
)

type fixture struct {
	llm       *MockLLM
	market    *MockMarketService
	trading   *MockTradingService
	collector *MockCollector
	repo      *MockDecisionRepo
	monitor   *MockMonitor
	o         *Orchestrator
}

func newFixture(t *testing.T, timeframes []string) *fixture {
	t.Helper()
	f := &fixture{
		llm:       new(MockLLM),
		market:    new(MockMarketService),
		trading:   new(MockTradingService),
		collector: new(MockCollector),
		repo:      new(MockDecisionRepo),
		monitor:   new(MockMonitor),
	}
	f.monitor.On("Report", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.trading.On("Position", mock.Anything, btc).Return(exchange.Position{TradingPair: btc}, nil).Maybe()

	o, err := NewOrchestrator(Deps{
		Market:     f.market,
		Trading:    f.trading,
		Engine:     indicator.NewEngine(indicator.DefaultParams()),
		Collector:  f.collector,
		PriceAgent: agent.NewPriceAgent(f.llm, 3),
		NewsAgent:  agent.NewNewsAgent(f.llm),
		Aggregator: agent.NewAggregator(f.llm, agent.AggregatorConfig{
			MaxExposure:   0.7,
			DegradeFactor: 0.5,
			PriceWeight:   0.85,
			NewsWeight:    0.15,
		}),
		Repo:    f.repo,
		Monitor: f.monitor,
	}, Config{
		TradingPair:      btc,
		Timeframes:       timeframes,
		Lookback:         200,
		News:             news.Query{Keywords: []string{"bitcoin"}, Window: 24 * time.Hour, MaxItems: 20},
		CandleTimeout:    time.Second,
		ReasoningTimeout: time.Second,
		ExecutionTimeout: time.Second,
	}, WithClock(func() time.Time { return cycleTime }))
	require.NoError(t, err)
	f.o = o
	return f
}

func (f *fixture) assertAll(t *testing.T) {
	f.o.Wait()
	f.llm.AssertExpectations(t)
	f.market.AssertExpectations(t)
	f.trading.AssertExpectations(t)
	f.collector.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func uptrend() []exchange.Kline {
	return klinetest.Generate(cycleTime.Add(-200*5*time.Minute), 5*time.Minute, 60000, 200, klinetest.TrendUp)
}

func bullishNews() news.Evidence {
	ev := news.Evidence{Keywords: []string{"bitcoin"}, CollectedAt: cycleTime}
	for i := 0; i < 5; i++ {
		ev.Items = append(ev.Items, news.Item{
			Title:       fmt.Sprintf("Bitcoin ETF inflows surge, day %d", i),
			Source:      "Reuters",
			PublishedAt: cycleTime.Add(-time.Duration(i+1) * time.Hour),
			Query:       "bitcoin",
		})
	}
	return ev
}

func asked(prefix string) any {
	return mock.MatchedBy(func(q llm.Question) bool {
		return strings.HasPrefix(q.Content, prefix)
	})
}

func reply(content string) llm.Answer {
	return llm.Answer{Content: content}
}

const (
	pricePrefix     = "Multi-timeframe indicator evidence"
	newsPrefix      = "Search keywords"
	aggregatePrefix = "Symbol: "
)

func TestRunCycle_UptrendAndBullishNews(t *testing.T) {
	f := newFixture(t, allFrames)
	f.market.On("GetKlines", mock.Anything, mock.MatchedBy(func(req exchange.GetKlinesReq) bool {
		return req.Limit == 200 && req.EndTime.Equal(cycleTime) && req.TradingPair == btc
	})).Return(uptrend(), nil).Times(len(allFrames))
	f.collector.On("Collect", mock.Anything, mock.Anything).Return(bullishNews(), nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(pricePrefix)).
		Return(reply(`{"direction":"BUY","confidence":0.8,"rationale":"all timeframes trending up"}`), nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(newsPrefix)).
		Return(reply(`{"direction":"BUY","confidence":0.7,"rationale":"strong inflows"}`), nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(aggregatePrefix)).
		Return(reply(`{"direction":"BUY","size_fraction":0.5,"rationale":"aligned bullish signals"}`), nil).Once()
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r entity.DecisionRecord) bool {
		return r.Direction == "BUY" && r.Status == "DECIDED" && len(r.Verdicts) == 2 && r.LastPrice > 0
	})).Return(nil).Once()
	f.trading.On("Execute", mock.Anything, mock.MatchedBy(func(req exchange.ExecuteReq) bool {
		return req.Side == exchange.SideBuy && req.SizeFraction.Equal(decimal.NewFromFloat(0.5))
	})).Return(exchange.ExecuteResp{OrderId: "42"}, nil).Once()

	c, err := f.o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusDispatched, c.Status())
	assert.Len(t, c.Snapshots, len(allFrames))
	assert.Empty(t, c.FailedTimeframes)
	require.NotNil(t, c.PriceVerdict)
	require.NotNil(t, c.NewsVerdict)
	assert.Equal(t, agent.DirectionBuy, c.PriceVerdict.Direction)
	assert.Equal(t, agent.DirectionBuy, c.NewsVerdict.Direction)
	require.NotNil(t, c.Decision)
	assert.Equal(t, agent.DirectionBuy, c.Decision.Direction)
	assert.Greater(t, c.Decision.SizeFraction, 0.0)
	assert.LessOrEqual(t, c.Decision.SizeFraction, 0.7)
	assert.False(t, c.Decision.Degraded)
	// 最后一根 5m K 线收盘价 60000 * (1 + 199*0.005)
	assert.InDelta(t, 119700.0, c.LastPrice, 1e-6)
	assert.Equal(t, c.LastPrice, c.Decision.LastPrice)
	assert.EqualValues(t, 1, c.ID)
	require.NotNil(t, c.Execution)
	assert.Equal(t, exchange.OrderId("42"), c.Execution.OrderId)
	f.assertAll(t)
	f.monitor.AssertCalled(t, "Report", mock.Anything, mock.MatchedBy(func(r monitor.Report) bool {
		return r.Status == "DISPATCHED" && r.OrderId == "42"
	}))
}

func TestRunCycle_CandlesFailNewsSucceeds(t *testing.T) {
	f := newFixture(t, allFrames)
	f.market.On("GetKlines", mock.Anything, mock.Anything).
		Return([]exchange.Kline(nil), errors.New("binance: 503")).Times(len(allFrames))
	f.collector.On("Collect", mock.Anything, mock.Anything).Return(bullishNews(), nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(newsPrefix)).
		Return(reply(`{"direction":"SELL","confidence":0.6,"rationale":"regulatory pressure"}`), nil).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.trading.On("Execute", mock.Anything, mock.MatchedBy(func(req exchange.ExecuteReq) bool {
		return req.Side == exchange.SideSell
	})).Return(exchange.ExecuteResp{OrderId: "7"}, nil).Once()

	c, err := f.o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Len(t, c.FailedTimeframes, len(allFrames))
	assert.Contains(t, c.FailedTimeframes["5m"], "data error")
	require.NotNil(t, c.PriceVerdict)
	assert.Equal(t, agent.DirectionHold, c.PriceVerdict.Direction)
	assert.Zero(t, c.PriceVerdict.Confidence)
	assert.Contains(t, c.PriceVerdict.Rationale, "insufficient data")

	d := c.Decision
	require.NotNil(t, d)
	assert.True(t, d.Degraded)
	assert.Equal(t, agent.DirectionSell, d.Direction)
	assert.InDelta(t, 0.6*0.5*0.7, d.SizeFraction, 1e-9)
	assert.Contains(t, d.Rationale, "price signal missing")
	assert.Equal(t, StatusDispatched, c.Status())
	f.llm.AssertNotCalled(t, "AskOnce", mock.Anything, asked(pricePrefix))
	f.llm.AssertNotCalled(t, "AskOnce", mock.Anything, asked(aggregatePrefix))
	f.assertAll(t)
}

func TestRunCycle_NoEvidenceHolds(t *testing.T) {
	f := newFixture(t, []string{"5m", "15m", "30m"})
	f.market.On("GetKlines", mock.Anything, mock.Anything).
		Return([]exchange.Kline(nil), errors.New("timeout")).Times(3)
	f.collector.On("Collect", mock.Anything, mock.Anything).
		Return(news.Evidence{}, errs.Transport("news.collect", context.DeadlineExceeded)).Once()
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r entity.DecisionRecord) bool {
		return r.Direction == "HOLD" && r.SizeFraction == 0
	})).Return(nil).Once()

	c, err := f.o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, agent.DirectionHold, c.Decision.Direction)
	assert.Zero(t, c.Decision.SizeFraction)
	assert.Zero(t, c.Decision.LastPrice)
	assert.Equal(t, StatusDispatched, c.Status())
	assert.Error(t, c.NewsErr)
	f.llm.AssertNotCalled(t, "AskOnce", mock.Anything, mock.Anything)
	f.trading.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestRunCycle_UnsupportedTimeframeSkipped(t *testing.T) {
	f := newFixture(t, []string{"5m", "10m", "15m", "30m"})
	f.market.On("GetKlines", mock.Anything, mock.Anything).Return(uptrend(), nil).Times(3)
	f.collector.On("Collect", mock.Anything, mock.Anything).Return(news.Evidence{}, nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(pricePrefix)).
		Return(reply(`{"direction":"HOLD","confidence":0.4,"rationale":"range"}`), nil).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	c, err := f.o.RunCycle(context.Background())
	require.NoError(t, err)
	require.Contains(t, c.FailedTimeframes, "10m")
	assert.Len(t, c.FailedTimeframes, 1)
	assert.Len(t, c.Snapshots, 3)
	assert.Equal(t, agent.DirectionHold, c.Decision.Direction)
	f.assertAll(t)
}

func TestRunCycle_ExecutionFailure(t *testing.T) {
	f := newFixture(t, allFrames)
	f.market.On("GetKlines", mock.Anything, mock.Anything).Return(uptrend(), nil)
	f.collector.On("Collect", mock.Anything, mock.Anything).Return(bullishNews(), nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(pricePrefix)).
		Return(reply(`{"direction":"BUY","confidence":0.8,"rationale":"up"}`), nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(newsPrefix)).
		Return(reply(`{"direction":"BUY","confidence":0.7,"rationale":"good news"}`), nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(aggregatePrefix)).
		Return(reply(`{"direction":"BUY","size_fraction":0.3,"rationale":"go"}`), nil).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.trading.On("Execute", mock.Anything, mock.Anything).
		Return(exchange.ExecuteResp{}, errors.New("margin is insufficient")).Once()

	c, err := f.o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, c.Status())
	assert.True(t, errs.Is(c.Err, errs.KindExecution))
	require.NotNil(t, c.Decision)
	assert.Equal(t, agent.DirectionBuy, c.Decision.Direction)
	f.assertAll(t)
	f.monitor.AssertCalled(t, "Report", mock.Anything, mock.MatchedBy(func(r monitor.Report) bool {
		return r.Status == "FAILED" && r.Decision != nil && strings.Contains(r.Err, "margin")
	}))
}

func TestRunCycle_Cancelled(t *testing.T) {
	f := newFixture(t, allFrames)
	ctx, cancel := context.WithCancel(context.Background())
	f.market.On("GetKlines", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]exchange.Kline(nil), context.Canceled)
	f.collector.On("Collect", mock.Anything, mock.Anything).Return(news.Evidence{}, context.Canceled).Maybe()

	c, err := f.o.RunCycle(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, c.Status())
	assert.Nil(t, c.Decision)
	f.o.Wait()
	f.llm.AssertNotCalled(t, "AskOnce", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.trading.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRunCycle_PersistFailureNotFatal(t *testing.T) {
	f := newFixture(t, []string{"5m", "15m", "30m"})
	f.market.On("GetKlines", mock.Anything, mock.Anything).Return(uptrend(), nil).Times(3)
	f.collector.On("Collect", mock.Anything, mock.Anything).Return(news.Evidence{}, nil).Once()
	f.llm.On("AskOnce", mock.Anything, asked(pricePrefix)).
		Return(reply(`{"direction":"HOLD","confidence":0.2,"rationale":"flat"}`), nil).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	c, err := f.o.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, StatusDispatched, c.Status())
	f.assertAll(t)
}

func TestRestoreSequence(t *testing.T) {
	f := newFixture(t, allFrames)
	f.repo.On("MaxCycleID", mock.Anything).Return(int64(41), nil).Once()
	require.NoError(t, f.o.RestoreSequence(context.Background()))
	assert.EqualValues(t, 42, f.o.seq.Add(1))
}

func TestNewOrchestrator_RequiresCollaborators(t *testing.T) {
	_, err := NewOrchestrator(Deps{}, Config{TradingPair: btc, Timeframes: allFrames})
	assert.Error(t, err)
}
