package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter cria um producer pro tópico dado. brokers aceita lista separada
// por vírgula ("a:9092,b:9092"). Os serviços só produzem eventos de domínio
// (payment_completed, bet_placed, bet_settled); consumo fica com sistemas
// downstream.
func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
}
