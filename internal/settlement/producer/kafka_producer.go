package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/betwise-platform/pkg/contracts/events"
)

// KafkaPublisher emite os eventos de liquidação nos tópicos de contrato.
type KafkaPublisher struct {
	PaymentWriter *kafka.Writer
	BetWriter     *kafka.Writer
}

func NewKafkaPublisher(paymentWriter, betWriter *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{PaymentWriter: paymentWriter, BetWriter: betWriter}
}

func (p *KafkaPublisher) PublishPaymentCompleted(ctx context.Context, e events.PaymentCompleted) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now()
	}
	b, _ := json.Marshal(e)
	return p.PaymentWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.Reference), Value: b})
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now()
	}
	b, _ := json.Marshal(e)
	return p.BetWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.BetID), Value: b})
}
