package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/metrics"
	"github.com/amanora/mall-navigator-backend/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher mirrors analytics events onto a Kafka topic so downstream
// consumers (BI, the admin dashboard's rollups) can read them without
// querying the primary store.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to topic on brokers. The
// writer is asynchronous: Publish only buffers, and delivery failures are
// logged from the completion callback.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Completion:   logDelivery,
		},
	}
}

func logDelivery(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range messages {
		eventType := ""
		for _, h := range msg.Headers {
			if h.Key == "eventType" {
				eventType = string(h.Value)
			}
		}
		metrics.AnalyticsEvents.WithLabelValues(eventType, "publish_failed").Inc()
	}
	log.Warn().Err(err).Int("messages", len(messages)).Msg("analytics: kafka delivery failed")
}

// kafkaEvent is the wire shape of a published event
type kafkaEvent struct {
	ID        string                 `json:"id"`
	EventType models.EventType       `json:"eventType"`
	UserID    string                 `json:"userId,omitempty"`
	MetaData  map[string]interface{} `json:"metaData,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// eventMessage encodes an event. Events of one user share a key so they
// land on one partition in order.
func eventMessage(event *models.AnalyticsEvent) (kafka.Message, error) {
	payload := kafkaEvent{
		ID:        event.ID.Hex(),
		EventType: event.EventType,
		MetaData:  event.MetaData,
		CreatedAt: event.CreatedAt,
	}
	key := string(event.EventType)
	if event.UserID != nil {
		payload.UserID = event.UserID.Hex()
		key = payload.UserID
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
		},
	}, nil
}

// Publish hands one event to the writer's batch without waiting for delivery
func (p *KafkaPublisher) Publish(ctx context.Context, event *models.AnalyticsEvent) error {
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
