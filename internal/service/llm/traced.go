package llm

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Traced 给每次推理调用加 span 与日志
type Traced struct {
	next Service
	name string
}

func NewTraced(next Service, name string) *Traced {
	return &Traced{next: next, name: name}
}

func (t *Traced) AskOnce(ctx context.Context, q Question) (Answer, error) {
	ctx, span := otel.Tracer("decision-agent/llm").Start(ctx, "llm.ask")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", t.name),
		attribute.Int("llm.prompt_chars", len(q.System)+len(q.Content)),
	)

	start := time.Now()
	ans, err := t.next.AskOnce(ctx, q)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "llm call failed", "provider", t.name, "elapsed", elapsed, "error", err)
		return ans, err
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", ans.InputToken),
		attribute.Int("llm.output_tokens", ans.OutputToken),
	)
	slog.DebugContext(ctx, "llm call done", "provider", t.name, "elapsed", elapsed,
		"input_tokens", ans.InputToken, "output_tokens", ans.OutputToken)
	return ans, nil
}
