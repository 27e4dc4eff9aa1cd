package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KNICEX/decision-agent/internal/errs"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/oklog/ulid/v2"
)

type AggregatorConfig struct {
	MaxExposure   float64
	DegradeFactor float64
	PriceWeight   float64
	NewsWeight    float64
}

// AggregateInput 缺失的 Verdict 为 nil，并在 *Missing 中写明原因
type AggregateInput struct {
	CycleID      int64
	Symbol       string
	LastPrice    float64
	Price        *Verdict
	News         *Verdict
	PriceMissing string
	NewsMissing  string
	Position     *exchange.Position
}

type Aggregator struct {
	llm llm.Service
	cfg AggregatorConfig
	now func() time.Time
}

func NewAggregator(svc llm.Service, cfg AggregatorConfig) *Aggregator {
	return &Aggregator{
		llm: svc,
		cfg: cfg,
		now: time.Now,
	}
}

const decisionSystem = `You are a cryptocurrency portfolio and risk manager focused on short-term trading.
You reconcile a technical-analysis verdict and a news-sentiment verdict into one trading decision.
Respond ONLY with one JSON object matching this schema, no prose:
{"direction": "BUY" | "SELL" | "HOLD", "size_fraction": number between 0 and 1, "rationale": string,
 "stop_loss": optional positive number, "target_price": optional positive number}`

// Aggregate 总是返回一个 Decision；推理失败时为 HOLD 并在 Err 中记录
func (a *Aggregator) Aggregate(ctx context.Context, in AggregateInput) Decision {
	d := Decision{
		ID:        ulid.Make().String(),
		CycleID:   in.CycleID,
		Symbol:    in.Symbol,
		LastPrice: in.LastPrice,
		Direction: DirectionHold,
		Timestamp: a.now(),
		Contributing: []VerdictSlot{
			slot(AgentPrice, in.Price, in.PriceMissing),
			slot(AgentNews, in.News, in.NewsMissing),
		},
	}

	priceOK := in.Price != nil && in.Price.Usable()
	newsOK := in.News != nil && in.News.Usable()

	switch {
	case priceOK && newsOK:
		a.reconcile(ctx, &d, in)
	case priceOK:
		a.degrade(&d, *in.Price, AgentNews, d.Contributing[1].Missing)
	case newsOK:
		a.degrade(&d, *in.News, AgentPrice, d.Contributing[0].Missing)
	default:
		d.Rationale = fmt.Sprintf("no usable signal (price: %s; news: %s)", d.Contributing[0].Missing, d.Contributing[1].Missing)
	}

	d.SizeFraction = a.clamp(d.SizeFraction)
	if d.Direction == DirectionHold {
		d.SizeFraction = 0
	}
	return d
}

func slot(name string, v *Verdict, missing string) VerdictSlot {
	s := VerdictSlot{Agent: name, Verdict: v}
	switch {
	case v == nil && missing == "":
		s.Missing = "no verdict produced"
	case v == nil:
		s.Missing = missing
	case !v.Usable():
		s.Missing = v.Rationale
	}
	return s
}

func (a *Aggregator) clamp(size float64) float64 {
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return math.Min(size, a.cfg.MaxExposure)
}

func (a *Aggregator) degrade(d *Decision, v Verdict, missingAgent, reason string) {
	d.Degraded = true
	d.Direction = v.Direction
	d.SizeFraction = v.Confidence * a.cfg.DegradeFactor * a.cfg.MaxExposure
	d.Rationale = fmt.Sprintf("degraded: %s signal missing (%s); following %s verdict %s with confidence %.2f at reduced size. %s",
		missingAgent, reason, v.Agent, v.Direction, v.Confidence, v.Rationale)
}

func (a *Aggregator) reconcile(ctx context.Context, d *Decision, in AggregateInput) {
	ans, err := a.llm.AskOnce(ctx, llm.Question{System: decisionSystem, Content: a.prompt(in)})
	if err != nil {
		a.fail(d, errs.Transport("aggregator", err))
		return
	}
	parsed, err := ParseDecision(ans.Content)
	if err != nil {
		a.fail(d, err)
		return
	}
	if in.Price.Direction == in.News.Direction && parsed.Direction != in.Price.Direction {
		a.fail(d, errs.Reasoningf("aggregator", "decision %s contradicts unanimous %s verdicts", parsed.Direction, in.Price.Direction))
		return
	}
	d.Direction = parsed.Direction
	d.SizeFraction = parsed.SizeFraction
	d.Rationale = parsed.Rationale
	d.StopLoss = parsed.StopLoss
	d.TargetPrice = parsed.TargetPrice
	if parsed.SizeFraction > a.cfg.MaxExposure {
		slog.Info("decision size clamped", "cycle", in.CycleID, "requested", parsed.SizeFraction, "max", a.cfg.MaxExposure)
	}
}

func (a *Aggregator) fail(d *Decision, err error) {
	slog.Warn("aggregation reasoning failed, forcing HOLD", "cycle", d.CycleID, "error", err)
	d.Direction = DirectionHold
	d.SizeFraction = 0
	d.Err = err.Error()
	d.Rationale = fmt.Sprintf("reasoning failure: %v", err)
}

type verdictView struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Rationale  string    `json:"rationale"`
	Evidence   string    `json:"evidence"`
}

func (a *Aggregator) prompt(in AggregateInput) string {
	view := func(v *Verdict) verdictView {
		return verdictView{Direction: v.Direction, Confidence: v.Confidence, Rationale: v.Rationale, Evidence: v.EvidenceRef}
	}
	bundle, _ := json.MarshalIndent(map[string]verdictView{
		"technical_analysis": view(in.Price),
		"news_analysis":      view(in.News),
	}, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", in.Symbol)
	if in.LastPrice > 0 {
		fmt.Fprintf(&b, "Last price: %s\n", strconv.FormatFloat(in.LastPrice, 'f', -1, 64))
	}
	fmt.Fprintf(&b, "Decision weights: technical analysis %.0f%%, news analysis %.0f%%. ",
		a.cfg.PriceWeight*100, a.cfg.NewsWeight*100)
	b.WriteString("Weigh disagreeing verdicts by their confidence; when both verdicts agree on direction you must keep that direction.\n")
	fmt.Fprintf(&b, "size_fraction is the fraction of available balance to trade; it will be capped at %.2f.\n", a.cfg.MaxExposure)
	if p := in.Position; p != nil && !p.IsZero() {
		fmt.Fprintf(&b, "Current position: quantity %s, entry price %s, mark price %s, unrealized PnL %s%%.\n",
			p.Quantity, p.EntryPrice, p.MarkPrice, p.PnlPercent().StringFixed(2))
	} else {
		b.WriteString("Current position: none.\n")
	}
	b.WriteString("Verdicts:\n")
	b.Write(bundle)
	return b.String()
}
