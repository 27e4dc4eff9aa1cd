package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/KNICEX/decision-agent/internal/service/indicator"
	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/samber/lo"
)

type PriceEvidence struct {
	Symbol    string
	LastPrice float64
	Snapshots []indicator.Snapshot
	// FailedTimeframes 拉取或计算失败的时间框架及原因
	FailedTimeframes map[string]string
}

func (e PriceEvidence) Usable() []indicator.Snapshot {
	return lo.Filter(e.Snapshots, func(s indicator.Snapshot, _ int) bool { return s.Usable() })
}

const verdictSchema = `{"direction": "BUY" | "SELL" | "HOLD", "confidence": number between 0 and 1, "rationale": string}`

const priceSystem = `You are a cryptocurrency technical analyst focused on short-term (scalping / day-trading) opportunities.
Judge the price action from the multi-timeframe indicator readings you are given.
Respond ONLY with one JSON object matching this schema, no prose:
` + verdictSchema

func NewPriceAgent(svc llm.Service, minTimeframes int) *Agent[PriceEvidence] {
	precheck := func(e PriceEvidence) (bool, string, string) {
		usable := e.Usable()
		ref := priceRef(e)
		if len(usable) < minTimeframes {
			return false, fmt.Sprintf("insufficient data: %d of %d required timeframes usable", len(usable), minTimeframes), ref
		}
		return true, "", ref
	}
	return NewAgent[PriceEvidence](AgentPrice, svc, pricePrompt, precheck)
}

func priceRef(e PriceEvidence) string {
	usable := lo.Map(e.Usable(), func(s indicator.Snapshot, _ int) string { return s.Timeframe })
	ref := fmt.Sprintf("timeframes=[%s]", strings.Join(usable, ","))
	if len(e.FailedTimeframes) > 0 {
		failed := lo.Keys(e.FailedTimeframes)
		sort.Strings(failed)
		ref += fmt.Sprintf(" failed=[%s]", strings.Join(failed, ","))
	}
	return ref
}

type timeframeReading struct {
	Timeframe    string             `json:"timeframe"`
	Candles      int                `json:"candles"`
	Close        float64            `json:"close"`
	Indicators   map[string]float64 `json:"indicators"`
	Insufficient []string           `json:"insufficient,omitempty"`
}

func pricePrompt(e PriceEvidence) (llm.Question, string) {
	readings := lo.Map(e.Usable(), func(s indicator.Snapshot, _ int) timeframeReading {
		return timeframeReading{
			Timeframe:    s.Timeframe,
			Candles:      s.Candles,
			Close:        s.Last,
			Indicators:   s.Values,
			Insufficient: s.Insufficient,
		}
	})
	// json.Marshal 对 map 的 key 排序，输出稳定
	bundle, _ := json.MarshalIndent(map[string]any{
		"symbol":            e.Symbol,
		"last_price":        e.LastPrice,
		"timeframes":        readings,
		"failed_timeframes": e.FailedTimeframes,
	}, "", "  ")

	var b strings.Builder
	b.WriteString("Multi-timeframe indicator evidence:\n")
	b.Write(bundle)
	b.WriteString("\n\nIndicator groups: trend (ma_*, ema_*, wma_*, ma_cross, ema_cross, macd, trend_slope), ")
	b.WriteString("momentum (rsi_14, stoch_k/d, williams_r, cci_20, mfi_14, change_rate), ")
	b.WriteString("volatility (bollinger_*, atr_14, adx_14, plus_di, minus_di), volume (volume_trend, obv, vwap_20).\n")
	b.WriteString("Weigh short timeframes for entry timing and long timeframes for trend direction.")
	return llm.Question{System: priceSystem, Content: b.String()}, priceRef(e)
}
