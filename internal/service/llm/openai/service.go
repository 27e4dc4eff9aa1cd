// Package openai 对接 OpenAI 兼容的 chat completions 接口
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KNICEX/decision-agent/internal/service/llm"
)

var _ llm.Service = (*Service)(nil)

const defaultBaseURL = "https://api.openai.com/v1"

type Service struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	jsonMode    bool
	httpClient  *http.Client
}

type Option func(s *Service)

func WithBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

func WithTemperature(temp float64) Option {
	return func(s *Service) {
		s.temperature = temp
	}
}

func WithJSONResponse() Option {
	return func(s *Service) {
		s.jsonMode = true
	}
}

func WithHTTPClient(cli *http.Client) Option {
	return func(s *Service) {
		s.httpClient = cli
	}
}

func NewService(apiKey string, opts ...Option) *Service {
	s := &Service{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       "gpt-4o-mini",
		temperature: 0.3,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	body := chatRequest{
		Model:       s.model,
		Temperature: s.temperature,
	}
	if q.System != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: q.System})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: q.Content})
	if s.jsonMode {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	bb, err := json.Marshal(body)
	if err != nil {
		return llm.Answer{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(bb))
	if err != nil {
		return llm.Answer{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return llm.Answer{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return llm.Answer{}, err
	}
	var r chatResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return llm.Answer{}, fmt.Errorf("openai http %d: decode response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		if r.Error != nil {
			return llm.Answer{}, fmt.Errorf("openai http %d: %s", resp.StatusCode, r.Error.Message)
		}
		return llm.Answer{}, fmt.Errorf("openai http %d", resp.StatusCode)
	}
	if len(r.Choices) == 0 {
		return llm.Answer{}, errors.New("openai returned no choices")
	}
	return llm.Answer{
		Content:     strings.TrimSpace(r.Choices[0].Message.Content),
		InputToken:  r.Usage.PromptTokens,
		OutputToken: r.Usage.CompletionTokens,
	}, nil
}
