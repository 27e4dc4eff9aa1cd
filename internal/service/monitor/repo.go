package monitor

import (
	"context"

	"github.com/KNICEX/decision-agent/internal/repo"
)

// RepoMonitor 把周期最终状态写回决策记录。执行失败时记录保持 DECIDED，只补充错误
type RepoMonitor struct {
	repo repo.DecisionRepo
}

func NewRepoMonitor(r repo.DecisionRepo) *RepoMonitor {
	return &RepoMonitor{repo: r}
}

func (m *RepoMonitor) Report(ctx context.Context, r Report) error {
	if r.Decision == nil || !r.Final() {
		return nil
	}
	status := r.Status
	if status == "FAILED" {
		status = "DECIDED"
	}
	return m.repo.UpdateStatus(ctx, r.Decision.ID, status, r.Err, r.OrderId)
}
