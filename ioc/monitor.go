package ioc

import (
	"log/slog"
	"time"

	"github.com/KNICEX/decision-agent/internal/repo"
	"github.com/KNICEX/decision-agent/internal/service/monitor"
	"github.com/KNICEX/decision-agent/internal/service/notification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

func InitMonitor(logger *slog.Logger, decisions repo.DecisionRepo, reg prometheus.Registerer, writer *kafka.Writer) monitor.Monitor {
	fanout := monitor.NewFanout(5*time.Second,
		monitor.NewLogMonitor(logger),
		monitor.NewRepoMonitor(decisions),
		monitor.NewMetricsMonitor(reg),
	)
	if writer != nil {
		fanout.Add(monitor.NewKafkaMonitor(writer))
	}
	if url := viper.GetString("notify.webhook_url"); url != "" {
		fanout.Add(monitor.NewNotifyMonitor(notification.NewWebhookService(nil), url))
	}
	return fanout
}
