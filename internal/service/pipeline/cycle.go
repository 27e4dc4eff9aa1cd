// Package pipeline 单个决策周期的编排：采集 -> 分析 -> 聚合 -> 下发
package pipeline

import (
	"sync"
	"time"

	"github.com/KNICEX/decision-agent/internal/service/agent"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/indicator"
	"github.com/KNICEX/decision-agent/internal/service/news"
)

type Status string

const (
	StatusCollecting  Status = "COLLECTING"
	StatusAnalyzing   Status = "ANALYZING"
	StatusAggregating Status = "AGGREGATING"
	StatusDecided     Status = "DECIDED"
	StatusDispatched  Status = "DISPATCHED"
	StatusFailed      Status = "FAILED"
)

// next 合法的状态迁移，FAILED 可以从任意非终态进入
var next = map[Status]Status{
	StatusCollecting:  StatusAnalyzing,
	StatusAnalyzing:   StatusAggregating,
	StatusAggregating: StatusDecided,
	StatusDecided:     StatusDispatched,
}

func (s Status) Terminal() bool {
	return s == StatusDispatched || s == StatusFailed
}

// Cycle 一次决策周期的上下文。分支只写自己的字段，Wait 之后再读
type Cycle struct {
	ID        int64
	Symbol    string
	StartedAt time.Time
	// Cutoff 所有指标只使用该时间之前的 K 线
	Cutoff time.Time

	mu         sync.Mutex
	status     Status
	FinishedAt time.Time

	Snapshots        []indicator.Snapshot
	FailedTimeframes map[string]string
	// LastPrice 最短可用时间框架的最新收盘价，没有可用 K 线时为 0
	LastPrice        float64
	Evidence         news.Evidence
	NewsErr          error

	PriceVerdict *agent.Verdict
	NewsVerdict  *agent.Verdict
	PriceMissing string
	NewsMissing  string

	Position  *exchange.Position
	Decision  *agent.Decision
	Execution *exchange.ExecuteResp
	Err       error
}

func newCycle(id int64, symbol string, now time.Time) *Cycle {
	return &Cycle{
		ID:               id,
		Symbol:           symbol,
		StartedAt:        now,
		Cutoff:           now,
		status:           StatusCollecting,
		FailedTimeframes: make(map[string]string),
	}
}

func (c *Cycle) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// advance 只允许按顺序前进；已是终态时不再变化
func (c *Cycle) advance(to Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return false
	}
	if to != StatusFailed && next[c.status] != to {
		return false
	}
	c.status = to
	return true
}

func (c *Cycle) fail(err error, at time.Time) {
	if c.advance(StatusFailed) {
		c.Err = err
		c.FinishedAt = at
	}
}
