package events

import (
	"context"
	"fmt"
	"time"

	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/shared"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaGoPublisher struct {
	writer messageWriter
}

func NewKafkaGoPublisher(brokers []string, topic string) *KafkaGoPublisher {
	return &KafkaGoPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaGoPublisher) Publish(ctx context.Context, e shared.Event) error {
	value, err := encode(e)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(e.ID.String())},
			{Key: "event-type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return errs.Wrap(err, fmt.Sprintf("failed to publish event %s", e.ID))
	}
	return nil
}

func (p *KafkaGoPublisher) Close() error {
	return p.writer.Close()
}
