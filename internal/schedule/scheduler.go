package schedule

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler 按固定间隔运行 Task，同一时间最多一个运行中的实例
type Scheduler struct {
	task     Task
	interval time.Duration
	// immediate 启动后立刻运行一次，不等第一个 tick
	immediate bool

	running atomic.Bool
	wg      sync.WaitGroup
	skipped atomic.Int64
}

type Option func(s *Scheduler)

func WithImmediate() Option {
	return func(s *Scheduler) {
		s.immediate = true
	}
}

func NewScheduler(task Task, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		task:     task,
		interval: interval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 阻塞直到 ctx 结束；返回前等待运行中的任务退出
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	slog.Info("scheduler started", "task", s.task.Name(), "interval", s.interval)
	if s.immediate {
		s.trigger(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping", "task", s.task.Name(), "reason", ctx.Err())
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// Skipped 因上一次运行未结束而跳过的 tick 数
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		slog.Warn("previous run still in flight, tick skipped", "task", s.task.Name())
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		start := time.Now()
		if err := s.task.Run(ctx); err != nil {
			slog.Error("scheduled task failed", "task", s.task.Name(), "error", err, "elapsed", time.Since(start))
			return
		}
		slog.Info("scheduled task finished", "task", s.task.Name(), "elapsed", time.Since(start))
	}()
}
