package pipeline

import (
	"github.com/KNICEX/decision-agent/internal/entity"
	"github.com/KNICEX/decision-agent/internal/service/agent"
	"github.com/samber/lo"
)

func toRecord(c *Cycle) entity.DecisionRecord {
	d := c.Decision
	return entity.DecisionRecord{
		Id:           d.ID,
		CycleId:      c.ID,
		Symbol:       d.Symbol,
		Direction:    string(d.Direction),
		LastPrice:    d.LastPrice,
		SizeFraction: d.SizeFraction,
		Rationale:    d.Rationale,
		Degraded:     d.Degraded,
		Status:       string(StatusDecided),
		Error:        d.Err,
		StopLoss:     d.StopLoss,
		TargetPrice:  d.TargetPrice,
		DecidedAt:    d.Timestamp,
		Verdicts: lo.Map(d.Contributing, func(s agent.VerdictSlot, _ int) entity.VerdictRecord {
			r := entity.VerdictRecord{
				DecisionId: d.ID,
				Agent:      s.Agent,
				Missing:    s.Missing,
			}
			if v := s.Verdict; v != nil {
				r.Direction = string(v.Direction)
				r.Confidence = v.Confidence
				r.Rationale = v.Rationale
				r.EvidenceRef = v.EvidenceRef
				r.Fallback = v.Fallback
				r.Error = v.Err
				r.CreatedAt = v.CreatedAt
			}
			return r
		}),
	}
}

// FromRecord 还原落库的决策，供历史查询使用
func FromRecord(r entity.DecisionRecord) agent.Decision {
	return agent.Decision{
		ID:           r.Id,
		CycleID:      r.CycleId,
		Symbol:       r.Symbol,
		Direction:    agent.Direction(r.Direction),
		LastPrice:    r.LastPrice,
		SizeFraction: r.SizeFraction,
		Rationale:    r.Rationale,
		Degraded:     r.Degraded,
		StopLoss:     r.StopLoss,
		TargetPrice:  r.TargetPrice,
		Err:          r.Error,
		Timestamp:    r.DecidedAt,
		Contributing: lo.Map(r.Verdicts, func(v entity.VerdictRecord, _ int) agent.VerdictSlot {
			slot := agent.VerdictSlot{Agent: v.Agent, Missing: v.Missing}
			if v.Direction != "" {
				slot.Verdict = &agent.Verdict{
					Agent:       v.Agent,
					Direction:   agent.Direction(v.Direction),
					Confidence:  v.Confidence,
					Rationale:   v.Rationale,
					EvidenceRef: v.EvidenceRef,
					Fallback:    v.Fallback,
					Err:         v.Error,
					CreatedAt:   v.CreatedAt,
				}
			}
			return slot
		}),
	}
}
