package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/luis-ma-m/eco-spain-mapper/internal/aggregate"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes built aggregate datasets to a Kafka topic. The batch
// driver uses it as an optional sink next to the flat CSV output.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given brokers and topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAggregates serializes and publishes every aggregate of one build in
// a single WriteMessages call. buildID ties all messages of a run together.
func (w *Writer) PublishAggregates(ctx context.Context, buildID string, aggs []*aggregate.Aggregate) error {
	if len(aggs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(aggs))
	for i, a := range aggs {
		msg, err := serializeToMessage(buildID, a)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Info("aggregates published", "build_id", buildID, "count", len(aggs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one aggregate into a Kafka message keyed by its
// composite key, so replays of the same build compact cleanly.
func serializeToMessage(buildID string, a *aggregate.Aggregate) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize aggregate: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "build_id", Value: []byte(buildID)},
			{Key: "generated_at", Value: []byte(domain.Now().Format(time.RFC3339))},
		},
	}, nil
}
