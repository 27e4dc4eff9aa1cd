package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderId string

func (id OrderId) IsZero() bool {
	return id == ""
}

func (id OrderId) ToString() string {
	return string(id)
}

// ExecuteReq 按资金比例下市价单
// BUY: 使用 SizeFraction 比例的可用余额买入
// SELL: 卖出当前多头持仓的 SizeFraction 比例
type ExecuteReq struct {
	TradingPair  TradingPair
	Side         Side
	SizeFraction decimal.Decimal
}

type ExecuteResp struct {
	OrderId  OrderId
	Quantity decimal.Decimal
	Price    decimal.Decimal // 预估成交价
	Skipped  bool            // 数量取整后为 0，未下单
}

// Position 单一交易对的多头持仓
type Position struct {
	TradingPair   TradingPair
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	MarkPrice     decimal.Decimal
	UnrealizedPnl decimal.Decimal
}

func (p Position) IsZero() bool {
	return p.Quantity.IsZero()
}

// PnlPercent 未实现盈亏百分比
func (p Position) PnlPercent() decimal.Decimal {
	if p.EntryPrice.IsZero() || p.MarkPrice.IsZero() {
		return decimal.Zero
	}
	return p.MarkPrice.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
}

type TradingService interface {
	Execute(ctx context.Context, req ExecuteReq) (ExecuteResp, error)
	Position(ctx context.Context, pair TradingPair) (Position, error)
}

type QuantityPrecisionProvider interface {
	GetQuantityPrecision(pair TradingPair) int32
}
