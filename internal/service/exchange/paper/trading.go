// Package paper 提供 DRY_RUN 模式下的模拟成交
package paper

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/pkg/decimalx"
	"github.com/shopspring/decimal"
)

var _ exchange.TradingService = (*TradingService)(nil)

// TradingService 以最新价模拟市价成交，记录虚拟余额与多头持仓
type TradingService struct {
	market    exchange.MarketService
	precision exchange.QuantityPrecisionProvider

	mu          sync.Mutex
	balance     decimal.Decimal
	positions   map[string]*exchange.Position
	nextOrderId int64
}

func NewTradingService(market exchange.MarketService, precision exchange.QuantityPrecisionProvider, initialBalance decimal.Decimal) *TradingService {
	return &TradingService{
		market:      market,
		precision:   precision,
		balance:     initialBalance,
		positions:   make(map[string]*exchange.Position),
		nextOrderId: 1,
	}
}

func (s *TradingService) Execute(ctx context.Context, req exchange.ExecuteReq) (exchange.ExecuteResp, error) {
	price, err := s.market.Ticker(ctx, req.TradingPair)
	if err != nil {
		return exchange.ExecuteResp{}, fmt.Errorf("get ticker failed: %w", err)
	}
	if !price.IsPositive() {
		return exchange.ExecuteResp{}, fmt.Errorf("invalid ticker price %s", price)
	}
	precision := s.precision.GetQuantityPrecision(req.TradingPair)
	// 比例限制在 [0, 1]，不会透支余额或卖空
	fraction := decimalx.Clamp(req.SizeFraction, decimal.Zero, decimal.NewFromInt(1))

	s.mu.Lock()
	defer s.mu.Unlock()

	key := req.TradingPair.ToString()
	pos, ok := s.positions[key]
	if !ok {
		pos = &exchange.Position{TradingPair: req.TradingPair}
		s.positions[key] = pos
	}

	var quantity decimal.Decimal
	switch req.Side {
	case exchange.SideBuy:
		quantity = s.balance.Mul(fraction).Div(price).Truncate(precision)
		if !quantity.IsPositive() {
			return exchange.ExecuteResp{Price: price, Skipped: true}, nil
		}
		cost := quantity.Mul(price)
		// 加权平均开仓价
		total := pos.Quantity.Add(quantity)
		pos.EntryPrice = pos.EntryPrice.Mul(pos.Quantity).Add(cost).Div(total)
		pos.Quantity = total
		s.balance = s.balance.Sub(cost)
	case exchange.SideSell:
		quantity = pos.Quantity.Mul(fraction).Truncate(precision)
		if !quantity.IsPositive() {
			return exchange.ExecuteResp{Price: price, Skipped: true}, nil
		}
		pos.Quantity = pos.Quantity.Sub(quantity)
		s.balance = s.balance.Add(quantity.Mul(price))
		if pos.Quantity.IsZero() {
			pos.EntryPrice = decimal.Zero
		}
	default:
		return exchange.ExecuteResp{}, fmt.Errorf("unsupported side %q", req.Side)
	}
	pos.MarkPrice = price

	orderId := exchange.OrderId("paper-" + strconv.FormatInt(s.nextOrderId, 10))
	s.nextOrderId++
	return exchange.ExecuteResp{
		OrderId:  orderId,
		Quantity: quantity,
		Price:    price,
	}, nil
}

func (s *TradingService) Position(ctx context.Context, pair exchange.TradingPair) (exchange.Position, error) {
	price, err := s.market.Ticker(ctx, pair)
	if err != nil {
		return exchange.Position{}, fmt.Errorf("get ticker failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[pair.ToString()]
	if !ok || pos.Quantity.IsZero() {
		return exchange.Position{TradingPair: pair}, nil
	}
	pos.MarkPrice = price
	pos.UnrealizedPnl = price.Sub(pos.EntryPrice).Mul(pos.Quantity)
	return *pos, nil
}

func (s *TradingService) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}
