package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ exchange.TradingService = (*TradingService)(nil)

// TradingService 单向持仓模式下的市价单执行
type TradingService struct {
	cli       *futures.Client
	market    exchange.MarketService
	precision exchange.QuantityPrecisionProvider
}

func NewTradingService(cli *futures.Client, market exchange.MarketService, precision exchange.QuantityPrecisionProvider) *TradingService {
	return &TradingService{
		cli:       cli,
		market:    market,
		precision: precision,
	}
}

func (s *TradingService) Execute(ctx context.Context, req exchange.ExecuteReq) (exchange.ExecuteResp, error) {
	price, err := s.market.Ticker(ctx, req.TradingPair)
	if err != nil {
		return exchange.ExecuteResp{}, fmt.Errorf("get ticker failed: %w", err)
	}

	var quantity decimal.Decimal
	switch req.Side {
	case exchange.SideBuy:
		account, err := s.cli.NewGetAccountService().Do(ctx)
		if err != nil {
			return exchange.ExecuteResp{}, fmt.Errorf("get account failed: %w", err)
		}
		// MaxWithdrawAmount 已扣除挂单锁定的保证金
		available, err := decimal.NewFromString(account.MaxWithdrawAmount)
		if err != nil {
			return exchange.ExecuteResp{}, fmt.Errorf("parse available balance: %w", err)
		}
		quantity = buyQuantity(available, req.SizeFraction, price, s.precision.GetQuantityPrecision(req.TradingPair))
	case exchange.SideSell:
		pos, err := s.Position(ctx, req.TradingPair)
		if err != nil {
			return exchange.ExecuteResp{}, err
		}
		quantity = sellQuantity(pos.Quantity, req.SizeFraction, s.precision.GetQuantityPrecision(req.TradingPair))
	default:
		return exchange.ExecuteResp{}, fmt.Errorf("unsupported side %q", req.Side)
	}

	if !quantity.IsPositive() {
		slog.Warn("order quantity rounds to zero, skip",
			"symbol", req.TradingPair.ToString(), "side", req.Side, "fraction", req.SizeFraction.String())
		return exchange.ExecuteResp{Price: price, Skipped: true}, nil
	}

	svc := s.cli.NewCreateOrderService().
		Symbol(req.TradingPair.ToString()).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(quantity.String()).
		NewClientOrderID(newClientOrderID())
	if req.Side == exchange.SideSell {
		svc.ReduceOnly(true)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.ExecuteResp{}, fmt.Errorf("create market order failed: %w", err)
	}
	return exchange.ExecuteResp{
		OrderId:  exchange.OrderId(strconv.FormatInt(resp.OrderID, 10)),
		Quantity: quantity,
		Price:    price,
	}, nil
}

func (s *TradingService) Position(ctx context.Context, pair exchange.TradingPair) (exchange.Position, error) {
	risks, err := s.cli.NewGetPositionRiskService().Symbol(pair.ToString()).Do(ctx)
	if err != nil {
		return exchange.Position{}, fmt.Errorf("get position risk failed: %w", err)
	}
	for _, r := range risks {
		qty, err := decimal.NewFromString(r.PositionAmt)
		if err != nil {
			return exchange.Position{}, fmt.Errorf("parse position amount: %w", err)
		}
		// 只关心多头
		if !qty.IsPositive() {
			continue
		}
		return convertPosition(pair, qty, r)
	}
	return exchange.Position{TradingPair: pair}, nil
}

func convertPosition(pair exchange.TradingPair, qty decimal.Decimal, r *futures.PositionRisk) (exchange.Position, error) {
	pos := exchange.Position{TradingPair: pair, Quantity: qty}
	fields := []struct {
		name string
		dst  *decimal.Decimal
		src  string
	}{
		{"entry price", &pos.EntryPrice, r.EntryPrice},
		{"mark price", &pos.MarkPrice, r.MarkPrice},
		{"unrealized pnl", &pos.UnrealizedPnl, r.UnRealizedProfit},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return exchange.Position{}, fmt.Errorf("parse position %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return pos, nil
}

// buyQuantity 可用余额 * 比例 / 价格，向下取整到交易对精度
func buyQuantity(available, fraction, price decimal.Decimal, precision int32) decimal.Decimal {
	if !price.IsPositive() || !available.IsPositive() {
		return decimal.Zero
	}
	return available.Mul(fraction).Div(price).Truncate(precision)
}

func sellQuantity(held, fraction decimal.Decimal, precision int32) decimal.Decimal {
	if !held.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(held, held.Mul(fraction)).Truncate(precision)
}

// newClientOrderID 币安限制 36 字符以内
func newClientOrderID() string {
	return "da-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:29]
}
