package pipeline

import (
	"context"

	"github.com/KNICEX/decision-agent/internal/schedule"
)

type Task struct {
	orchestrator *Orchestrator
}

func NewTask(o *Orchestrator) schedule.Task {
	return &Task{orchestrator: o}
}

func (t *Task) Run(ctx context.Context) error {
	c, err := t.orchestrator.RunCycle(ctx)
	if err != nil {
		return err
	}
	if c.Status() == StatusFailed {
		return c.Err
	}
	return nil
}

func (t *Task) Name() string {
	return "decision cycle task"
}
