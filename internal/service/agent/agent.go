package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KNICEX/decision-agent/internal/errs"
	"github.com/KNICEX/decision-agent/internal/service/llm"
)

// Evaluator 把某种证据转换为 Verdict
type Evaluator[E any] interface {
	Name() string
	Evaluate(ctx context.Context, evidence E) (Verdict, error)
}

// PromptFunc 证据 -> 推理请求，同时返回证据摘要
type PromptFunc[E any] func(evidence E) (q llm.Question, evidenceRef string)

// PrecheckFunc 返回 ok=false 时直接给出 HOLD/0，不调用推理步骤
type PrecheckFunc[E any] func(evidence E) (ok bool, reason string, evidenceRef string)

var _ Evaluator[PriceEvidence] = (*Agent[PriceEvidence])(nil)

// Agent 价格/新闻 Agent 的共同实现，只在证据形态与 prompt 上有区别
type Agent[E any] struct {
	name     string
	llm      llm.Service
	prompt   PromptFunc[E]
	precheck PrecheckFunc[E]
	now      func() time.Time
}

func NewAgent[E any](name string, svc llm.Service, prompt PromptFunc[E], precheck PrecheckFunc[E]) *Agent[E] {
	return &Agent[E]{
		name:     name,
		llm:      svc,
		prompt:   prompt,
		precheck: precheck,
		now:      time.Now,
	}
}

func (a *Agent[E]) Name() string {
	return a.name
}

// Evaluate 总是返回一个可用的 Verdict；推理失败时 error 非空且 Verdict 为 HOLD/0
func (a *Agent[E]) Evaluate(ctx context.Context, evidence E) (Verdict, error) {
	if a.precheck != nil {
		if ok, reason, ref := a.precheck(evidence); !ok {
			return a.hold(reason, ref, true, ""), nil
		}
	}

	q, ref := a.prompt(evidence)
	ans, err := a.llm.AskOnce(ctx, q)
	if err != nil {
		err = errs.Transport(a.name+" agent", err)
		slog.Warn("agent reasoning call failed", "agent", a.name, "error", err)
		return a.hold(fmt.Sprintf("reasoning failure: %v", err), ref, false, err.Error()), err
	}
	parsed, err := ParseVerdict(ans.Content)
	if err != nil {
		slog.Warn("agent reasoning response rejected", "agent", a.name, "error", err, "raw", ans.Content)
		return a.hold(fmt.Sprintf("reasoning failure: %v", err), ref, false, err.Error()), err
	}
	return Verdict{
		Agent:       a.name,
		Direction:   parsed.Direction,
		Confidence:  parsed.Confidence,
		Rationale:   parsed.Rationale,
		EvidenceRef: ref,
		CreatedAt:   a.now(),
	}, nil
}

func (a *Agent[E]) hold(rationale, ref string, fallback bool, errMsg string) Verdict {
	return Verdict{
		Agent:       a.name,
		Direction:   DirectionHold,
		Confidence:  0,
		Rationale:   rationale,
		EvidenceRef: ref,
		Fallback:    fallback,
		Err:         errMsg,
		CreatedAt:   a.now(),
	}
}
