package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/zlin640/finpost/backend/internal/journal/events"
)

// Publisher writes JournalPosted events to one kafka topic. Messages are
// keyed by source table + id so replays of the same row stay in order.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *Publisher) PublishJournalPosted(ctx context.Context, event events.JournalPosted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", event.SourceTable, event.SourceID)),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
