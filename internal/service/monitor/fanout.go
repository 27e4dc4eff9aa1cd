package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Fanout 依次调用每个 Monitor，失败只记日志，不向流水线返回错误
type Fanout struct {
	monitors []Monitor
	timeout  time.Duration
}

func NewFanout(timeout time.Duration, monitors ...Monitor) *Fanout {
	return &Fanout{
		monitors: monitors,
		timeout:  timeout,
	}
}

func (f *Fanout) Add(m Monitor) {
	f.monitors = append(f.monitors, m)
}

func (f *Fanout) Report(ctx context.Context, r Report) error {
	for _, m := range f.monitors {
		f.reportOne(ctx, m, r)
	}
	return nil
}

func (f *Fanout) reportOne(ctx context.Context, m Monitor, r Report) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("monitor panicked", "monitor", fmt.Sprintf("%T", m), "cycle", r.CycleID, "panic", p)
		}
	}()
	if err := m.Report(ctx, r); err != nil {
		slog.Error("monitor report failed", "monitor", fmt.Sprintf("%T", m), "cycle", r.CycleID, "status", r.Status, "error", err)
	}
}
