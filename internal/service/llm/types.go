package llm

import (
	"context"
)

// Question System 为角色/输出格式约束，Content 为证据与任务
type Question struct {
	System  string
	Content string
}

type Answer struct {
	Content     string
	InputToken  int
	OutputToken int
}

type Service interface {
	AskOnce(ctx context.Context, q Question) (Answer, error)
}
