package monitor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageWriter *kafka.Writer 的子集
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaMonitor 把最终状态的报告以 JSON 发送到 topic，key 为交易对
type KafkaMonitor struct {
	writer MessageWriter
}

func NewKafkaMonitor(writer MessageWriter) *KafkaMonitor {
	return &KafkaMonitor{writer: writer}
}

func (m *KafkaMonitor) Report(ctx context.Context, r Report) error {
	if !r.Final() {
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(r.Symbol),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(r.Status)},
		},
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report to kafka: %w", err)
	}
	return nil
}
