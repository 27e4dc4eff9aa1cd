package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type MarketService interface {
	Ticker(ctx context.Context, tradingPair TradingPair) (decimal.Decimal, error)
	GetKlines(ctx context.Context, req GetKlinesReq) ([]Kline, error)
}

// GetKlinesReq 按 EndTime 向前取 Limit 根 K 线；StartTime 可选
type GetKlinesReq struct {
	TradingPair        TradingPair
	Interval           Interval
	Limit              int
	StartTime, EndTime time.Time
}
