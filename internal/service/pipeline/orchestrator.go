package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/decision-agent/internal/errs"
	"github.com/KNICEX/decision-agent/internal/repo"
	"github.com/KNICEX/decision-agent/internal/service/agent"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/indicator"
	"github.com/KNICEX/decision-agent/internal/service/monitor"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type NewsCollector interface {
	Collect(ctx context.Context, q news.Query) (news.Evidence, error)
}

type DecisionMaker interface {
	Aggregate(ctx context.Context, in agent.AggregateInput) agent.Decision
}

type Config struct {
	TradingPair      exchange.TradingPair
	Timeframes       []string
	Lookback         int
	News             news.Query
	CandleTimeout    time.Duration
	ReasoningTimeout time.Duration
	ExecutionTimeout time.Duration
}

// Deps 流水线的协作者，全部必填
type Deps struct {
	Market     exchange.MarketService
	Trading    exchange.TradingService
	Engine     *indicator.Engine
	Collector  NewsCollector
	PriceAgent agent.Evaluator[agent.PriceEvidence]
	NewsAgent  agent.Evaluator[news.Evidence]
	Aggregator DecisionMaker
	Repo       repo.DecisionRepo
	Monitor    monitor.Monitor
}

type Orchestrator struct {
	Deps
	cfg    Config
	tracer trace.Tracer
	now    func() time.Time

	seq     atomic.Int64
	reports sync.WaitGroup
}

type Option func(o *Orchestrator)

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func NewOrchestrator(deps Deps, cfg Config, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Market == nil, deps.Trading == nil, deps.Engine == nil, deps.Collector == nil:
		return nil, errors.New("pipeline: market, trading, engine and collector are required")
	case deps.PriceAgent == nil, deps.NewsAgent == nil, deps.Aggregator == nil:
		return nil, errors.New("pipeline: agents and aggregator are required")
	case deps.Repo == nil, deps.Monitor == nil:
		return nil, errors.New("pipeline: repo and monitor are required")
	case cfg.TradingPair.IsZero():
		return nil, errors.New("pipeline: trading pair is required")
	case len(cfg.Timeframes) == 0:
		return nil, errors.New("pipeline: at least one timeframe is required")
	}
	o := &Orchestrator{
		Deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/KNICEX/decision-agent/pipeline"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RestoreSequence 重启后周期号从已落库的最大值继续
func (o *Orchestrator) RestoreSequence(ctx context.Context) error {
	max, err := o.Repo.MaxCycleID(ctx)
	if err != nil {
		return fmt.Errorf("restore cycle sequence: %w", err)
	}
	o.seq.Store(max)
	return nil
}

// Wait 等待已发出的监控通知完成
func (o *Orchestrator) Wait() {
	o.reports.Wait()
}

// RunCycle 执行一个完整周期。返回的 error 只表示取消或编排本身的失败，
// 数据/推理/执行错误体现在 Cycle 的状态与 Decision 中
func (o *Orchestrator) RunCycle(ctx context.Context) (*Cycle, error) {
	c := newCycle(o.seq.Add(1), o.cfg.TradingPair.ToSlashString(), o.now())
	ctx, span := o.tracer.Start(ctx, "pipeline.cycle", trace.WithAttributes(
		attribute.Int64("cycle.id", c.ID),
		attribute.String("cycle.symbol", c.Symbol),
	))
	defer span.End()
	slog.InfoContext(ctx, "decision cycle started", "cycle", c.ID, "symbol", c.Symbol, "cutoff", c.Cutoff)

	o.collect(ctx, c)
	if err := ctx.Err(); err != nil {
		return o.abort(span, c, err)
	}
	c.advance(StatusAnalyzing)

	o.analyze(ctx, c)
	if err := ctx.Err(); err != nil {
		return o.abort(span, c, err)
	}
	c.advance(StatusAggregating)

	d := o.aggregate(ctx, c)
	if err := ctx.Err(); err != nil {
		return o.abort(span, c, err)
	}
	c.Decision = &d
	c.advance(StatusDecided)
	span.SetAttributes(
		attribute.String("decision.id", d.ID),
		attribute.String("decision.direction", string(d.Direction)),
		attribute.Float64("decision.size", d.SizeFraction),
	)

	persistErr := o.persist(ctx, c)
	o.report(c, persistErr)

	if err := ctx.Err(); err != nil {
		return o.abort(span, c, err)
	}
	o.dispatch(ctx, c)
	c.FinishedAt = o.now()
	if c.Status() == StatusFailed {
		span.SetStatus(codes.Error, c.Err.Error())
	}
	o.report(c, nil)

	slog.InfoContext(ctx, "decision cycle finished", "cycle", c.ID, "status", c.Status(),
		"direction", d.Direction, "size", d.SizeFraction, "elapsed", c.FinishedAt.Sub(c.StartedAt))
	return c, persistErr
}

func (o *Orchestrator) abort(span trace.Span, c *Cycle, cause error) (*Cycle, error) {
	err := fmt.Errorf("cycle %d cancelled during %s: %w", c.ID, c.Status(), cause)
	c.fail(err, o.now())
	span.SetStatus(codes.Error, err.Error())
	slog.Warn("decision cycle cancelled, nothing dispatched", "cycle", c.ID, "error", cause)
	o.report(c, nil)
	return c, err
}

func (o *Orchestrator) collect(ctx context.Context, c *Cycle) {
	ctx, span := o.tracer.Start(ctx, "pipeline.collect")
	defer span.End()

	// 每个分支只写自己的下标/字段
	series := make([]*indicator.Series, len(o.cfg.Timeframes))
	fetchErrs := make([]error, len(o.cfg.Timeframes))

	var g errgroup.Group
	for i, tf := range o.cfg.Timeframes {
		g.Go(func() error {
			s, err := o.fetchSeries(ctx, tf, c.Cutoff)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}
			series[i] = &s
			return nil
		})
	}
	g.Go(func() error {
		ev, err := o.Collector.Collect(ctx, o.cfg.News)
		if err != nil {
			slog.WarnContext(ctx, "news collection failed", "cycle", c.ID, "error", err)
			c.NewsErr = err
			c.Evidence = news.Evidence{Keywords: o.cfg.News.Keywords, CollectedAt: c.Cutoff}
			return nil
		}
		c.Evidence = ev
		return nil
	})
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, o.cfg.ExecutionTimeout)
		defer cancel()
		p, err := o.Trading.Position(pctx, o.cfg.TradingPair)
		if err != nil {
			slog.WarnContext(ctx, "position lookup failed, deciding without position context", "cycle", c.ID, "error", err)
			return nil
		}
		c.Position = &p
		return nil
	})
	_ = g.Wait()

	fetched := make([]indicator.Series, 0, len(series))
	for i, tf := range o.cfg.Timeframes {
		if fetchErrs[i] != nil {
			c.FailedTimeframes[tf] = fetchErrs[i].Error()
			slog.WarnContext(ctx, "timeframe skipped", "cycle", c.ID, "timeframe", tf, "error", fetchErrs[i])
			continue
		}
		fetched = append(fetched, *series[i])
	}
	snaps, failed := o.Engine.ComputeAll(fetched, c.Cutoff)
	for tf, err := range failed {
		c.FailedTimeframes[tf] = err.Error()
		slog.WarnContext(ctx, "indicator computation rejected series", "cycle", c.ID, "timeframe", tf, "error", err)
	}
	c.Snapshots = snaps
	if s, ok := lo.Find(snaps, func(s indicator.Snapshot) bool { return s.Usable() }); ok {
		c.LastPrice = s.Last
	}
	span.SetAttributes(
		attribute.Int("collect.snapshots", len(snaps)),
		attribute.Int("collect.failed_timeframes", len(c.FailedTimeframes)),
		attribute.Int("collect.news_items", len(c.Evidence.Items)),
	)
}

func (o *Orchestrator) fetchSeries(ctx context.Context, tf string, cutoff time.Time) (indicator.Series, error) {
	interval, err := exchange.ParseInterval(tf)
	if err != nil {
		return indicator.Series{}, errs.Data("fetch candles "+tf, err)
	}
	fctx, cancel := context.WithTimeout(ctx, o.cfg.CandleTimeout)
	defer cancel()
	klines, err := o.Market.GetKlines(fctx, exchange.GetKlinesReq{
		TradingPair: o.cfg.TradingPair,
		Interval:    interval,
		Limit:       o.cfg.Lookback,
		EndTime:     cutoff,
	})
	if err != nil {
		return indicator.Series{}, errs.Data("fetch candles "+tf, err)
	}
	return indicator.Series{Timeframe: tf, Klines: klines}, nil
}

func (o *Orchestrator) analyze(ctx context.Context, c *Cycle) {
	ctx, span := o.tracer.Start(ctx, "pipeline.analyze")
	defer span.End()

	priceEvidence := agent.PriceEvidence{
		Symbol:           c.Symbol,
		Snapshots:        c.Snapshots,
		FailedTimeframes: c.FailedTimeframes,
		LastPrice:        c.LastPrice,
	}

	var g errgroup.Group
	g.Go(func() error {
		v, err := o.evaluate(ctx, o.PriceAgent.Name(), func(ctx context.Context) (agent.Verdict, error) {
			return o.PriceAgent.Evaluate(ctx, priceEvidence)
		})
		c.PriceVerdict = &v
		if err != nil {
			c.PriceMissing = err.Error()
		}
		return nil
	})
	g.Go(func() error {
		v, err := o.evaluate(ctx, o.NewsAgent.Name(), func(ctx context.Context) (agent.Verdict, error) {
			return o.NewsAgent.Evaluate(ctx, c.Evidence)
		})
		c.NewsVerdict = &v
		if err != nil {
			c.NewsMissing = err.Error()
		}
		return nil
	})
	_ = g.Wait()
}

func (o *Orchestrator) evaluate(ctx context.Context, name string, fn func(ctx context.Context) (agent.Verdict, error)) (agent.Verdict, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.agent", trace.WithAttributes(attribute.String("agent", name)))
	defer span.End()
	actx, cancel := context.WithTimeout(ctx, o.cfg.ReasoningTimeout)
	defer cancel()

	v, err := fn(actx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "agent produced no usable verdict", "agent", name, "error", err)
	}
	span.SetAttributes(
		attribute.String("verdict.direction", string(v.Direction)),
		attribute.Float64("verdict.confidence", v.Confidence),
	)
	return v, err
}

func (o *Orchestrator) aggregate(ctx context.Context, c *Cycle) agent.Decision {
	ctx, span := o.tracer.Start(ctx, "pipeline.aggregate")
	defer span.End()
	actx, cancel := context.WithTimeout(ctx, o.cfg.ReasoningTimeout)
	defer cancel()

	d := o.Aggregator.Aggregate(actx, agent.AggregateInput{
		CycleID:      c.ID,
		Symbol:       c.Symbol,
		LastPrice:    c.LastPrice,
		Price:        c.PriceVerdict,
		News:         c.NewsVerdict,
		PriceMissing: c.PriceMissing,
		NewsMissing:  c.NewsMissing,
		Position:     c.Position,
	})
	span.SetAttributes(attribute.Bool("decision.degraded", d.Degraded))
	return d
}

func (o *Orchestrator) persist(ctx context.Context, c *Cycle) error {
	if err := o.Repo.Create(ctx, toRecord(c)); err != nil {
		err = fmt.Errorf("persist decision %s: %w", c.Decision.ID, err)
		slog.ErrorContext(ctx, "failed to record decision", "cycle", c.ID, "error", err)
		return err
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, c *Cycle) {
	d := c.Decision
	if d.Direction == agent.DirectionHold {
		c.advance(StatusDispatched)
		return
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.dispatch")
	defer span.End()
	ectx, cancel := context.WithTimeout(ctx, o.cfg.ExecutionTimeout)
	defer cancel()

	side := exchange.SideBuy
	if d.Direction == agent.DirectionSell {
		side = exchange.SideSell
	}
	resp, err := o.Trading.Execute(ectx, exchange.ExecuteReq{
		TradingPair:  o.cfg.TradingPair,
		Side:         side,
		SizeFraction: decimal.NewFromFloat(d.SizeFraction),
	})
	if err != nil {
		err = errs.Execution("dispatch "+string(side), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "execution failed, decision kept", "cycle", c.ID, "decision", d.ID, "error", err)
		c.fail(err, o.now())
		return
	}
	c.Execution = &resp
	if resp.Skipped {
		slog.InfoContext(ctx, "order quantity rounds to zero, nothing placed", "cycle", c.ID, "side", side)
	}
	if !resp.OrderId.IsZero() {
		span.SetAttributes(attribute.String("order.id", resp.OrderId.ToString()))
	}
	c.advance(StatusDispatched)
}

// report 异步通知监控，不影响周期状态
func (o *Orchestrator) report(c *Cycle, extra error) {
	r := monitor.Report{
		CycleID:    c.ID,
		Symbol:     c.Symbol,
		Status:     string(c.Status()),
		StartedAt:  c.StartedAt,
		FinishedAt: c.FinishedAt,
	}
	if c.Decision != nil {
		d := *c.Decision
		r.Decision = &d
	}
	if c.Execution != nil && !c.Execution.OrderId.IsZero() {
		r.OrderId = c.Execution.OrderId.ToString()
	}
	if err := errors.Join(c.Err, extra); err != nil {
		r.Err = err.Error()
	}

	o.reports.Add(1)
	go func() {
		defer o.reports.Done()
		if err := o.Monitor.Report(context.Background(), r); err != nil {
			slog.Error("monitor report failed", "cycle", r.CycleID, "status", r.Status, "error", err)
		}
	}()
}
