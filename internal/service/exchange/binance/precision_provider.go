package binance

import (
	"github.com/KNICEX/decision-agent/internal/service/exchange"
)

var _ exchange.QuantityPrecisionProvider = (*PrecisionProvider)(nil)

// PrecisionProvider 币安合约数量精度
// 参考: https://www.binance.com/en/futures/trading-rules
type PrecisionProvider struct {
	precisions map[string]int32
}

func NewPrecisionProvider() *PrecisionProvider {
	return &PrecisionProvider{
		precisions: map[string]int32{
			"BTC":  3, // 0.001
			"ETH":  3,
			"BNB":  2,
			"SOL":  1,
			"XRP":  1,
			"AVAX": 1,
			"DOT":  1,
			"DOGE": 0,
			"ADA":  0,
		},
	}
}

func (p *PrecisionProvider) GetQuantityPrecision(pair exchange.TradingPair) int32 {
	if precision, ok := p.precisions[pair.Base]; ok {
		return precision
	}
	return 3
}
