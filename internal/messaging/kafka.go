package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/caredeck/medrank/internal/config"
	"github.com/caredeck/medrank/pkg/models"
)

// MessageBus publishes recommendation-served events for downstream
// analytics and notification consumers. Publication is fire-and-forget from
// the engine's point of view: a failed publish is logged by the caller and
// never affects the recommendation response.
type MessageBus struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topics.RecommendationEvents,
		Balancer:     &kafka.Hash{}, // Key by patient id so a patient's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	return &MessageBus{
		writer: writer,
		logger: logger,
	}, nil
}

func (mb *MessageBus) PublishRecommendationServed(ctx context.Context, event models.RecommendationServedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.PatientID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "strategy", Value: []byte(event.Strategy)},
			{Key: "timestamp", Value: []byte(event.GeneratedAt.Format(time.RFC3339))},
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.writer.WriteMessages(publishCtx, message); err != nil {
		return fmt.Errorf("failed to publish recommendation event: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"patient_id": event.PatientID,
		"strategy":   event.Strategy,
		"doctors":    len(event.DoctorIDs),
	}).Debug("Recommendation event published")

	return nil
}

func (mb *MessageBus) Close() error {
	if err := mb.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
