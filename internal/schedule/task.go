package schedule

import "context"

type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// TaskFunc 把普通函数包装为 Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (f TaskFunc) Run(ctx context.Context) error {
	return f.Fn(ctx)
}

func (f TaskFunc) Name() string {
	return f.TaskName
}
