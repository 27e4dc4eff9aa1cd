package entity

import (
	"time"
)

// DecisionRecord 每个周期的最终决策，HOLD 也会落库
type DecisionRecord struct {
	Id           string `gorm:"primaryKey;size:26"`
	CycleId      int64  `gorm:"index"`
	Symbol       string `gorm:"index"`
	Direction    string `gorm:"index"`
	// LastPrice 决策时的市场价格
	LastPrice    float64
	SizeFraction float64
	Rationale    string
	Degraded     bool
	Status       string `gorm:"index"` // 周期状态，DECIDED/DISPATCHED/FAILED
	Error        string
	StopLoss     *float64
	TargetPrice  *float64
	OrderId      string
	Verdicts     []VerdictRecord `gorm:"foreignKey:DecisionId;constraint:OnDelete:CASCADE"`
	DecidedAt    time.Time       `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VerdictRecord 参与决策的单个 Agent 结论，缺失时 Missing 非空
type VerdictRecord struct {
	Id          int64  `gorm:"primaryKey;autoIncrement"`
	DecisionId  string `gorm:"index;size:26"`
	Agent       string
	Direction   string
	Confidence  float64
	Rationale   string
	EvidenceRef string
	Fallback    bool
	Error       string
	Missing     string
	CreatedAt   time.Time
}
