package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KNICEX/decision-agent/internal/errs"
	"github.com/KNICEX/decision-agent/internal/service/indicator"
	"github.com/KNICEX/decision-agent/internal/service/llm"
	"github.com/KNICEX/decision-agent/internal/service/news"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func snapshots(timeframes ...string) []indicator.Snapshot {
	out := make([]indicator.Snapshot, 0, len(timeframes))
	for _, tf := range timeframes {
		out = append(out, indicator.Snapshot{
			Timeframe: tf,
			Candles:   200,
			Last:      63000,
			Values:    map[string]float64{"rsi_14": 55, "ma_20": 62800},
		})
	}
	return out
}

func TestPriceAgent_InsufficientData(t *testing.T) {
	m := new(MockLLM)
	a := NewPriceAgent(m, 3)

	evidence := PriceEvidence{
		Symbol:    "BTC/USDT",
		LastPrice: 63000,
		Snapshots: append(snapshots("5m", "15m"), indicator.Snapshot{Timeframe: "30m"}),
		FailedTimeframes: map[string]string{
			"60m": "timeout",
		},
	}
	v, err := a.Evaluate(context.Background(), evidence)
	require.NoError(t, err)

	assert.Equal(t, AgentPrice, v.Agent)
	assert.Equal(t, DirectionHold, v.Direction)
	assert.Zero(t, v.Confidence)
	assert.True(t, v.Fallback)
	assert.False(t, v.Usable())
	assert.Contains(t, v.Rationale, "insufficient data")
	assert.Contains(t, v.EvidenceRef, "failed=[60m]")
	m.AssertNotCalled(t, "AskOnce", mock.Anything, mock.Anything)
}

func TestPriceAgent_Evaluate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		answer     llm.Answer
		askErr     error
		wantDir    Direction
		wantConf   float64
		wantKind   errs.Kind
		wantUsable bool
	}{
		{
			name:       "valid verdict",
			answer:     answer(`{"direction":"BUY","confidence":0.72,"rationale":"uptrend on 3 timeframes"}`),
			wantDir:    DirectionBuy,
			wantConf:   0.72,
			wantUsable: true,
		},
		{
			name:     "confidence out of range",
			answer:   answer(`{"direction":"BUY","confidence":1.5,"rationale":"very sure"}`),
			wantDir:  DirectionHold,
			wantKind: errs.KindReasoning,
		},
		{
			name:     "transport failure",
			askErr:   errors.New("connection reset"),
			wantDir:  DirectionHold,
			wantKind: errs.KindTransport,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockLLM)
			m.On("AskOnce", mock.Anything, mock.MatchedBy(func(q llm.Question) bool {
				return q.System == priceSystem
			})).Return(tt.answer, tt.askErr).Once()

			a := NewPriceAgent(m, 3)
			a.now = func() time.Time { return now }

			v, err := a.Evaluate(context.Background(), PriceEvidence{
				Symbol:    "BTC/USDT",
				LastPrice: 63000,
				Snapshots: snapshots("5m", "15m", "30m"),
			})
			if tt.wantKind != errs.KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, errs.KindOf(err))
				assert.NotEmpty(t, v.Err)
				assert.False(t, v.Fallback)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantDir, v.Direction)
			assert.Equal(t, tt.wantConf, v.Confidence)
			assert.Equal(t, tt.wantUsable, v.Usable())
			assert.Equal(t, now, v.CreatedAt)
			assert.Equal(t, "timeframes=[5m,15m,30m]", v.EvidenceRef)
			m.AssertExpectations(t)
		})
	}
}

func TestNewsAgent_NoEvidence(t *testing.T) {
	m := new(MockLLM)
	a := NewNewsAgent(m)

	v, err := a.Evaluate(context.Background(), news.Evidence{
		Keywords:       []string{"bitcoin", "btc"},
		FailedKeywords: []string{"btc"},
	})
	require.NoError(t, err)
	assert.Equal(t, AgentNews, v.Agent)
	assert.Equal(t, DirectionHold, v.Direction)
	assert.Zero(t, v.Confidence)
	assert.Equal(t, "no evidence", v.Rationale)
	assert.False(t, v.Usable())
	m.AssertNotCalled(t, "AskOnce", mock.Anything, mock.Anything)
}

func TestNewsAgent_Evaluate(t *testing.T) {
	collected := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	evidence := news.Evidence{
		Keywords: []string{"bitcoin", "fed"},
		Items: []news.Item{
			{Title: "ETF inflows hit record", Source: "Reuters", PublishedAt: collected.Add(-2 * time.Hour), Query: "bitcoin"},
		},
		FailedKeywords: []string{"fed"},
		CollectedAt:    collected,
	}

	m := new(MockLLM)
	m.On("AskOnce", mock.Anything, mock.MatchedBy(func(q llm.Question) bool {
		return q.System == newsSystem
	})).Return(answer(`{"direction":"BUY","confidence":0.6,"rationale":"strong inflows"}`), nil).Once()

	v, err := NewNewsAgent(m).Evaluate(context.Background(), evidence)
	require.NoError(t, err)
	assert.Equal(t, DirectionBuy, v.Direction)
	assert.Equal(t, 0.6, v.Confidence)
	assert.Equal(t, "items=1 failed_keywords=[fed]", v.EvidenceRef)
	m.AssertExpectations(t)
}

func TestNewsPrompt_CoverageNote(t *testing.T) {
	collected := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q, _ := newsPrompt(news.Evidence{
		Keywords: []string{"bitcoin", "fed"},
		Items: []news.Item{
			{Title: "ETF inflows hit record", PublishedAt: collected.Add(-90 * time.Minute), Query: "bitcoin"},
		},
		FailedKeywords: []string{"fed"},
		CollectedAt:    collected,
	})
	assert.Contains(t, q.Content, "Coverage note")
	assert.Contains(t, q.Content, "ETF inflows hit record")
	assert.Contains(t, q.Content, `"age_hours": "1.5"`)
}

func TestVerdict_Usable(t *testing.T) {
	tests := []struct {
		name string
		v    Verdict
		want bool
	}{
		{name: "directional", v: Verdict{Direction: DirectionSell, Confidence: 0.4}, want: true},
		{name: "reasoned hold", v: Verdict{Direction: DirectionHold, Confidence: 0.5}, want: true},
		{name: "plain hold zero", v: Verdict{Direction: DirectionHold}, want: true},
		{name: "fallback", v: Verdict{Direction: DirectionHold, Fallback: true}, want: false},
		{name: "failure", v: Verdict{Direction: DirectionHold, Err: "boom"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Usable())
		})
	}
}
