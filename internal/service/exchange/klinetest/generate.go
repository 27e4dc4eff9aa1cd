// Package klinetest 生成模拟 K 线，供测试使用
package klinetest

import (
	"time"

	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/shopspring/decimal"
)

type Trend string

const (
	TrendUp       Trend = "up"
	TrendDown     Trend = "down"
	TrendSideways Trend = "sideways"
	TrendVolatile Trend = "volatile"
)

// Generate 生成 count 根 K 线
// basePrice: 基础价格；interval: K 线周期
func Generate(startTime time.Time, interval time.Duration, basePrice float64, count int, trend Trend) []exchange.Kline {
	klines := make([]exchange.Kline, count)
	for i := 0; i < count; i++ {
		var price float64
		switch trend {
		case TrendUp:
			// 每根K线涨0.5%
			price = basePrice * (1 + float64(i)*0.005)
		case TrendDown:
			price = basePrice * (1 - float64(i)*0.002)
		case TrendVolatile:
			if i%2 == 0 {
				price = basePrice * (1 + float64(i%10)*0.002)
			} else {
				price = basePrice * (1 - float64(i%10)*0.002)
			}
		default:
			price = basePrice * (1 + (float64(i%5)-2)*0.001)
		}

		openTime := startTime.Add(time.Duration(i) * interval)
		volume := 1000 + float64(i)*10
		klines[i] = exchange.Kline{
			OpenTime:         openTime,
			CloseTime:        openTime.Add(interval - time.Millisecond),
			Open:             decimal.NewFromFloat(price * 0.999),
			Close:            decimal.NewFromFloat(price),
			High:             decimal.NewFromFloat(price * 1.005),
			Low:              decimal.NewFromFloat(price * 0.995),
			Volume:           decimal.NewFromFloat(volume),
			QuoteAssetVolume: decimal.NewFromFloat(price * volume),
		}
	}
	return klines
}
