package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradingPair 交易对
type TradingPair struct {
	Base  string
	Quote string
}

// ParseTradingPair 解析 BTC/USDT 或 BTCUSDT 格式
func ParseTradingPair(s string) (TradingPair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if base, quote, ok := strings.Cut(s, "/"); ok {
		if base == "" || quote == "" {
			return TradingPair{}, fmt.Errorf("invalid trading pair %q", s)
		}
		return TradingPair{Base: base, Quote: quote}, nil
	}
	base, quote := SplitSymbol(s)
	if base == "" || quote == "" {
		return TradingPair{}, fmt.Errorf("invalid trading pair %q", s)
	}
	return TradingPair{Base: base, Quote: quote}, nil
}

func SplitSymbol(s string) (string, string) {
	s = strings.ToUpper(s)
	// 常见 Quote 列表
	quotes := []string{"USDT", "BUSD", "USDC", "KRW", "BTC", "ETH"}
	for _, q := range quotes {
		if strings.HasSuffix(s, q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, ""
}

func (s TradingPair) IsZero() bool {
	return s.Base == "" || s.Quote == ""
}

func (s TradingPair) ToString() string {
	return fmt.Sprintf("%s%s", s.Base, s.Quote)
}

func (s TradingPair) ToSlashString() string {
	return fmt.Sprintf("%s/%s", s.Base, s.Quote)
}

type Interval string

func (i Interval) ToString() string {
	return string(i)
}

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval3m:  3 * time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval2h:  2 * time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval8h:  8 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval3d:  72 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// ParseInterval 把配置里的时间框架标签转换成交易所支持的 K 线周期
// 60m -> 1h, 240m -> 4h, 24h -> 1d；交易所不支持的周期（如 10m）返回错误
func ParseInterval(label string) (Interval, error) {
	label = strings.TrimSpace(label)
	if _, ok := intervalDurations[Interval(label)]; ok {
		return Interval(label), nil
	}
	d, err := time.ParseDuration(label)
	if err != nil {
		return "", fmt.Errorf("unsupported timeframe %q", label)
	}
	for iv, dur := range intervalDurations {
		if dur == d {
			return iv, nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe %q", label)
}

type Kline struct {
	OpenTime         time.Time
	CloseTime        time.Time
	Open             decimal.Decimal
	Close            decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Volume           decimal.Decimal // 成交量
	QuoteAssetVolume decimal.Decimal // 成交额
}
