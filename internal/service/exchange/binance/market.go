package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

var _ exchange.MarketService = (*MarketService)(nil)

type MarketService struct {
	cli *futures.Client
}

// NewMarketService 创建市场数据服务
func NewMarketService(cli *futures.Client) *MarketService {
	return &MarketService{cli: cli}
}

func convertKlines(klines []*futures.Kline) ([]exchange.Kline, error) {
	kls := make([]exchange.Kline, 0, len(klines))
	for _, k := range klines {
		var (
			kl  exchange.Kline
			err error
		)
		fields := []struct {
			dst *decimal.Decimal
			src string
		}{
			{&kl.Open, k.Open},
			{&kl.Close, k.Close},
			{&kl.High, k.High},
			{&kl.Low, k.Low},
			{&kl.Volume, k.Volume},
			{&kl.QuoteAssetVolume, k.QuoteAssetVolume},
		}
		for _, f := range fields {
			if *f.dst, err = decimal.NewFromString(f.src); err != nil {
				return nil, fmt.Errorf("parse kline at %d: %w", k.OpenTime, err)
			}
		}
		kl.OpenTime = time.UnixMilli(k.OpenTime)
		kl.CloseTime = time.UnixMilli(k.CloseTime)
		kls = append(kls, kl)
	}
	return kls, nil
}

func (m *MarketService) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	svc := m.cli.NewKlinesService().Symbol(req.TradingPair.ToString()) // 币安合约API使用 BTCUSDT 格式，不是 BTC/USDT
	if req.Interval.ToString() != "" {
		svc.Interval(req.Interval.ToString())
	}
	if req.Limit > 0 {
		svc.Limit(req.Limit)
	}
	if !req.StartTime.IsZero() {
		svc.StartTime(req.StartTime.UnixMilli())
	}
	if !req.EndTime.IsZero() {
		svc.EndTime(req.EndTime.UnixMilli())
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	return convertKlines(res)
}

func (m *MarketService) Ticker(ctx context.Context, tradingPair exchange.TradingPair) (decimal.Decimal, error) {
	prices, err := m.cli.NewListPricesService().Symbol(tradingPair.ToString()).Do(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("no price for %s", tradingPair.ToString())
	}
	return decimal.NewFromString(prices[0].Price)
}
