package ioc

import (
	"log/slog"

	"github.com/KNICEX/decision-agent/internal/config"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/internal/service/exchange/binance"
	"github.com/KNICEX/decision-agent/internal/service/exchange/paper"
	"github.com/KNICEX/decision-agent/pkg/decimalx"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// InitExchange 行情始终来自 Binance；DRY_RUN 模式下单走模拟撮合
func InitExchange(cfg config.Config) (exchange.MarketService, exchange.TradingService) {
	cli := InitBinanceCli()
	market := binance.NewMarketService(cli)
	precision := binance.NewPrecisionProvider()

	if cfg.DryRun() {
		balance := decimal.NewFromInt(10000)
		if raw := viper.GetString("paper.balance"); raw != "" {
			balance = decimalx.MustFromString(raw)
		}
		slog.Info("dry run mode, orders are simulated", "balance", balance)
		return market, paper.NewTradingService(market, precision, balance)
	}
	slog.Warn("live mode, orders are sent to binance futures")
	return market, binance.NewTradingService(cli, market, precision)
}
