// Package agent 包含价格/新闻信号 Agent 与最终决策聚合
package agent

import (
	"strings"
	"time"
)

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

var directionAliases = map[string]Direction{
	"BUY":   DirectionBuy,
	"LONG":  DirectionBuy,
	"매수":    DirectionBuy,
	"SELL":  DirectionSell,
	"SHORT": DirectionSell,
	"매도":    DirectionSell,
	"HOLD":  DirectionHold,
	"WAIT":  DirectionHold,
	"관망":    DirectionHold,
}

func ParseDirection(s string) (Direction, bool) {
	d, ok := directionAliases[strings.ToUpper(strings.TrimSpace(s))]
	return d, ok
}

const (
	AgentPrice = "price"
	AgentNews  = "news"
)

// Verdict 单个 Agent 在一个周期内的方向判断，生成后不可修改
type Verdict struct {
	Agent       string    `json:"agent"`
	Direction   Direction `json:"direction"`
	Confidence  float64   `json:"confidence"`
	Rationale   string    `json:"rationale"`
	EvidenceRef string    `json:"evidence_ref"`
	// Fallback 未调用推理步骤，直接给出的保守结论（数据不足/无证据）
	Fallback bool `json:"fallback"`
	// Err 推理失败时记录的错误
	Err       string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable 兜底或失败产生的 HOLD/0 不算有效信号
func (v Verdict) Usable() bool {
	if v.Direction == DirectionHold && v.Confidence == 0 && (v.Fallback || v.Err != "") {
		return false
	}
	return true
}

// VerdictSlot 聚合时每个 Agent 占一个位置，缺失必须写明原因
type VerdictSlot struct {
	Agent   string   `json:"agent"`
	Verdict *Verdict `json:"verdict,omitempty"`
	Missing string   `json:"missing,omitempty"`
}

type Decision struct {
	ID           string        `json:"id"`
	CycleID      int64         `json:"cycle_id"`
	Symbol       string        `json:"symbol"`
	LastPrice    float64       `json:"last_price,omitempty"`
	Direction    Direction     `json:"direction"`
	SizeFraction float64       `json:"size_fraction"`
	Rationale    string        `json:"rationale"`
	Contributing []VerdictSlot `json:"contributing"`
	Degraded     bool          `json:"degraded"`
	StopLoss     *float64      `json:"stop_loss,omitempty"`
	TargetPrice  *float64      `json:"target_price,omitempty"`
	Err          string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
