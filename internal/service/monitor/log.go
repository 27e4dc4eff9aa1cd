package monitor

import (
	"context"
	"log/slog"
)

type LogMonitor struct {
	logger *slog.Logger
}

func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger}
}

func (m *LogMonitor) Report(ctx context.Context, r Report) error {
	attrs := []any{
		"cycle", r.CycleID,
		"symbol", r.Symbol,
		"status", r.Status,
		"elapsed", r.Duration(),
	}
	if d := r.Decision; d != nil {
		attrs = append(attrs,
			"decision", d.ID,
			"direction", d.Direction,
			"size", d.SizeFraction,
			"degraded", d.Degraded,
		)
	}
	if r.OrderId != "" {
		attrs = append(attrs, "order", r.OrderId)
	}
	if r.Err != "" {
		m.logger.WarnContext(ctx, "decision cycle failed", append(attrs, "error", r.Err)...)
		return nil
	}
	m.logger.InfoContext(ctx, "decision cycle report", attrs...)
	return nil
}
