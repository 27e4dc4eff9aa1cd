package ioc

import (
	"github.com/KNICEX/decision-agent/internal/config"
	"github.com/KNICEX/decision-agent/internal/repo"
	"github.com/KNICEX/decision-agent/internal/service/agent"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/indicator"
	"github.com/KNICEX/decision-agent/internal/service/monitor"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/KNICEX/decision-agent/internal/service/pipeline"
)

func InitOrchestrator(cfg config.Config, market exchange.MarketService, trading exchange.TradingService,
	collector *news.Collector, decisions repo.DecisionRepo, mon monitor.Monitor) *pipeline.Orchestrator {
	pair, err := exchange.ParseTradingPair(cfg.App.Symbol)
	if err != nil {
		panic(err)
	}

	o, err := pipeline.NewOrchestrator(pipeline.Deps{
		Market:     market,
		Trading:    trading,
		Engine:     indicator.NewEngine(indicator.DefaultParams()),
		Collector:  collector,
		PriceAgent: agent.NewPriceAgent(InitLLM("price", 0.3), cfg.Pipeline.MinTimeframes),
		NewsAgent:  agent.NewNewsAgent(InitLLM("news", 0.3)),
		Aggregator: agent.NewAggregator(InitLLM("aggregator", 0.2), agent.AggregatorConfig{
			MaxExposure:   cfg.Pipeline.MaxExposure,
			DegradeFactor: cfg.Pipeline.DegradeFactor,
			PriceWeight:   cfg.Pipeline.PriceWeight,
			NewsWeight:    cfg.Pipeline.NewsWeight,
		}),
		Repo:    decisions,
		Monitor: mon,
	}, pipeline.Config{
		TradingPair: pair,
		Timeframes:  cfg.Pipeline.Timeframes,
		Lookback:    cfg.Pipeline.Lookback,
		News: news.Query{
			Keywords: cfg.News.Keywords,
			Window:   cfg.News.Window,
			MaxItems: cfg.News.MaxItems,
		},
		CandleTimeout:    cfg.Timeouts.Candle,
		ReasoningTimeout: cfg.Timeouts.Reasoning,
		ExecutionTimeout: cfg.Timeouts.Execution,
	})
	if err != nil {
		panic(err)
	}
	return o
}
