package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeDryRun Mode = "DRY_RUN"
	ModeLive   Mode = "LIVE"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts"`
	News     NewsConfig     `mapstructure:"news"`
	Web      WebConfig      `mapstructure:"web"`
	Log      LogConfig      `mapstructure:"log"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

type AppConfig struct {
	Mode     Mode          `mapstructure:"mode" default:"DRY_RUN" validate:"oneof=DRY_RUN LIVE"`
	Symbol   string        `mapstructure:"symbol" default:"BTC/USDT" validate:"required,contains=/"`
	Interval time.Duration `mapstructure:"interval" default:"3m" validate:"gt=0"`
}

type PipelineConfig struct {
	Timeframes    []string `mapstructure:"timeframes" default:"[\"5m\",\"15m\",\"30m\",\"60m\",\"240m\",\"24h\"]" validate:"min=1,dive,required"`
	Lookback      int      `mapstructure:"lookback" default:"200" validate:"gt=0,lte=1500"`
	MinTimeframes int      `mapstructure:"min_timeframes" default:"3" validate:"gte=1"`
	MaxExposure   float64  `mapstructure:"max_exposure" default:"0.7" validate:"gte=0,lte=1"`
	DegradeFactor float64  `mapstructure:"degrade_factor" default:"0.5" validate:"gt=0,lte=1"`
	PriceWeight   float64  `mapstructure:"price_weight" default:"0.85" validate:"gte=0,lte=1"`
	NewsWeight    float64  `mapstructure:"news_weight" default:"0.15" validate:"gte=0,lte=1"`
}

type TimeoutConfig struct {
	Candle    time.Duration `mapstructure:"candle" default:"10s" validate:"gt=0"`
	News      time.Duration `mapstructure:"news" default:"10s" validate:"gt=0"`
	Reasoning time.Duration `mapstructure:"reasoning" default:"60s" validate:"gt=0"`
	Execution time.Duration `mapstructure:"execution" default:"15s" validate:"gt=0"`
}

type NewsConfig struct {
	Keywords       []string      `mapstructure:"keywords" default:"[\"bitcoin\",\"ethereum\",\"nasdaq\"]" validate:"min=1,dive,required"`
	Window         time.Duration `mapstructure:"window" default:"24h" validate:"gt=0"`
	MaxItems       int           `mapstructure:"max_items" default:"20" validate:"gt=0"`
	MaxConcurrency int           `mapstructure:"max_concurrency" default:"4" validate:"gt=0"`
	Sources        []string      `mapstructure:"sources" default:"[\"google\"]" validate:"min=1,dive,oneof=google naver"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" default:"5m"`
}

type WebConfig struct {
	Addr string `mapstructure:"addr" default:":8080"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" default:"text" validate:"oneof=text json"`
}

type TraceConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name" default:"decision-agent"`
}

var validate = validator.New()

// Load 先填默认值，再用 viper 覆盖，最后校验
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("set config defaults: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.App.Mode = Mode(strings.ToUpper(string(cfg.App.Mode)))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Pipeline.MinTimeframes > len(c.Pipeline.Timeframes) {
		return fmt.Errorf("invalid config: pipeline.min_timeframes %d exceeds %d configured timeframes",
			c.Pipeline.MinTimeframes, len(c.Pipeline.Timeframes))
	}
	if c.Pipeline.PriceWeight+c.Pipeline.NewsWeight == 0 {
		return fmt.Errorf("invalid config: price_weight and news_weight are both zero")
	}
	return nil
}

func (c Config) DryRun() bool {
	return c.App.Mode != ModeLive
}
