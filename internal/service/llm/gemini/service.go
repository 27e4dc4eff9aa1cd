package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/google/generative-ai-go/genai"
)

var _ llm.Service = (*Service)(nil)

const defaultModel = "gemini-2.0-flash"

type Service struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewService(client *genai.Client, opts ...Option) *Service {
	svc := &Service{
		client: client,
		model:  client.GenerativeModel(defaultModel),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type Option func(service *Service)

// WithModel 需要放在其它 Option 之前，它会重建 model
func WithModel(name string) Option {
	return func(service *Service) {
		if name != "" {
			service.model = service.client.GenerativeModel(name)
		}
	}
}

func WithTemperature(temp float32) Option {
	return func(service *Service) {
		service.model.SetTemperature(temp)
	}
}

// WithJSONResponse 要求模型直接输出 JSON
func WithJSONResponse() Option {
	return func(service *Service) {
		service.model.ResponseMIMEType = "application/json"
	}
}

func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	resp, err := s.modelFor(q).GenerateContent(ctx, genai.Text(q.Content))
	if err != nil {
		return llm.Answer{}, err
	}
	content := parseResponse(resp)
	if content == "" {
		return llm.Answer{}, errors.New("gemini returned no text candidate")
	}
	answer := llm.Answer{Content: content}
	if resp.UsageMetadata != nil {
		answer.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		answer.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return answer, nil
}

// modelFor 每次调用复制一份 model 设置系统指令，共享的 model 不被并发修改
func (s *Service) modelFor(q llm.Question) *genai.GenerativeModel {
	if q.System == "" {
		return s.model
	}
	m := *s.model
	m.SystemInstruction = genai.NewUserContent(genai.Text(q.System))
	return &m
}

func parseResponse(resp *genai.GenerateContentResponse) string {
	var resStr strings.Builder
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for i, part := range resp.Candidates[0].Content.Parts {
		text, ok := part.(genai.Text)
		if !ok {
			continue
		}
		if i > 0 {
			resStr.WriteString("\n")
		}
		resStr.WriteString(string(text))
	}
	return resStr.String()
}
