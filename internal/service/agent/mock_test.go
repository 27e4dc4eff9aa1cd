package agent

import (
	"context"

	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/stretchr/testify/mock"
)

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(llm.Answer), args.Error(1)
}

func answer(content string) llm.Answer {
	return llm.Answer{Content: content, InputToken: 100, OutputToken: 20}
}
