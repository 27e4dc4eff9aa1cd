package ioc

import (
	"github.com/KNICEX/decision-agent/internal/config"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

func InitNewsSource(cfg config.NewsConfig, timeout config.TimeoutConfig, rdb redis.UniversalClient) news.Source {
	sources := make([]news.Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		switch name {
		case "google":
			sources = append(sources, news.NewGoogleNewsSource(timeout.News))
		case "naver":
			sources = append(sources, initNaver(cfg, timeout))
		}
	}

	var source news.Source = news.NewMultiSource(sources...)
	if len(sources) == 1 {
		source = sources[0]
	}
	if cfg.CacheTTL <= 0 {
		return source
	}

	var cache news.Cache = news.NewMemoryCache()
	if rdb != nil {
		cache = news.NewRedisCache(rdb)
	}
	return news.NewCachedSource(source, cache, cfg.CacheTTL)
}

func initNaver(cfg config.NewsConfig, timeout config.TimeoutConfig) news.Source {
	type Config struct {
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	}

	var naver Config
	if err := viper.UnmarshalKey("news.naver", &naver); err != nil {
		panic(err)
	}
	if naver.ClientID == "" || naver.ClientSecret == "" {
		panic("news source naver enabled without news.naver.client_id/client_secret")
	}
	return news.NewNaverSource(naver.ClientID, naver.ClientSecret, cfg.MaxItems, timeout.News)
}

func InitNewsCollector(cfg config.NewsConfig, timeout config.TimeoutConfig, source news.Source) *news.Collector {
	return news.NewCollector(source,
		news.WithTimeout(timeout.News),
		news.WithMaxConcurrency(cfg.MaxConcurrency),
	)
}
