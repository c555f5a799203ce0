package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/odor-dispersion-service/internal/config"
	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
)

// Writer produces plume generations to the sink topic.
// It implements session.PlumePublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Messages
// are keyed by session id so one session's generations stay ordered.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishPlumes writes one plume generation.
func (w *Writer) PublishPlumes(ctx context.Context, gen domain.PlumeGeneration) error {
	msg, err := serializeToMessage(gen)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish plumes for session %s: %w", gen.SessionID, err)
	}
	w.logger.Debug("plumes published", "session_id", gen.SessionID, "plumes", len(gen.Plumes))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PlumeGeneration into a Kafka message.
func serializeToMessage(gen domain.PlumeGeneration) (kafkago.Message, error) {
	data, err := json.Marshal(gen)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize plume generation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(gen.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "session_id", Value: []byte(gen.SessionID)},
			{Key: "published_at", Value: []byte(gen.PublishedAt.Format(time.RFC3339Nano))},
		},
	}, nil
}
