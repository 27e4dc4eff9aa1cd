package ioc

import (
	"context"
	"fmt"
	"sync"

	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/KNICEX/decision-agent/internal/service/llm/gemini"
	"github.com/KNICEX/decision-agent/internal/service/llm/openai"
	"github.com/google/generative-ai-go/genai"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

// 三个推理角色共用一个 gemini client
var sharedGeminiCli = sync.OnceValue(InitGeminiCli)

func InitGeminiCli() *genai.Client {
	type Config struct {
		ApiKey []string `mapstructure:"api_key"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("llm.gemini", &cfg); err != nil {
		panic(err)
	}

	if len(cfg.ApiKey) == 0 {
		panic("no gemini api key set")
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.ApiKey[0]))
	if err != nil {
		panic(err)
	}
	return cli
}

// InitLLM 按 llm.provider 选择推理后端，temperature 由调用方按角色指定
func InitLLM(name string, temperature float64) llm.Service {
	var svc llm.Service
	switch provider := viper.GetString("llm.provider"); provider {
	case "", "gemini":
		var opts []gemini.Option
		if model := viper.GetString("llm.gemini.model"); model != "" {
			opts = append(opts, gemini.WithModel(model))
		}
		opts = append(opts, gemini.WithTemperature(float32(temperature)), gemini.WithJSONResponse())
		svc = gemini.NewService(sharedGeminiCli(), opts...)
	case "openai":
		svc = initOpenAI(temperature)
	default:
		panic(fmt.Sprintf("unknown llm provider %q", provider))
	}
	return llm.NewTraced(svc, name)
}

func initOpenAI(temperature float64) llm.Service {
	type Config struct {
		ApiKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("llm.openai", &cfg); err != nil {
		panic(err)
	}
	if cfg.ApiKey == "" {
		panic("no openai api key set")
	}

	opts := []openai.Option{openai.WithTemperature(temperature), openai.WithJSONResponse()}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	return openai.NewService(cfg.ApiKey, opts...)
}
