// Package monitor 接收流水线周期结果：日志、落库、消息、指标、通知
package monitor

import (
	"context"
	"time"

	"github.com/KNICEX/decision-agent/internal/service/agent"
)

// Report 周期结束（或进入 DECIDED）时的摘要
type Report struct {
	CycleID    int64           `json:"cycle_id"`
	Symbol     string          `json:"symbol"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Decision   *agent.Decision `json:"decision,omitempty"`
	OrderId    string          `json:"order_id,omitempty"`
	Err        string          `json:"error,omitempty"`
}

func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Final DECIDED 之后还会有 DISPATCHED/FAILED，只有后两者是周期的最终状态
func (r Report) Final() bool {
	return r.Status != "DECIDED"
}

type Monitor interface {
	Report(ctx context.Context, report Report) error
}
