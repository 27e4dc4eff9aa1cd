package monitor

import (
	"context"
	"fmt"

	"github.com/KNICEX/decision-agent/internal/service/agent"
	"github.com/KNICEX/decision-agent/internal/service/notification"
)

// NotifyMonitor 有方向的决策和失败的周期推送到 webhook，HOLD 不推送
type NotifyMonitor struct {
	webhook notification.WebhookService
	url     string
}

func NewNotifyMonitor(webhook notification.WebhookService, url string) *NotifyMonitor {
	return &NotifyMonitor{webhook: webhook, url: url}
}

func (m *NotifyMonitor) Report(ctx context.Context, r Report) error {
	if !r.Final() {
		return nil
	}
	if r.Err == "" && (r.Decision == nil || r.Decision.Direction == agent.DirectionHold) {
		return nil
	}
	return m.webhook.Send(ctx, m.url, map[string]any{
		"text":     m.text(r),
		"cycle_id": r.CycleID,
		"status":   r.Status,
		"symbol":   r.Symbol,
	})
}

func (m *NotifyMonitor) text(r Report) string {
	if d := r.Decision; d != nil {
		s := fmt.Sprintf("[%s] #%d %s %s size=%.2f", r.Status, r.CycleID, r.Symbol, d.Direction, d.SizeFraction)
		if d.Degraded {
			s += " (degraded)"
		}
		if r.Err != "" {
			s += ": " + r.Err
		}
		return s
	}
	return fmt.Sprintf("[%s] #%d %s: %s", r.Status, r.CycleID, r.Symbol, r.Err)
}
