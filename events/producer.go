package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// ScriptPublished announces a newly rendered weekly script
type ScriptPublished struct {
	RunID     string    `json:"run_id"`
	Path      string    `json:"path"`
	WeekStart string    `json:"week_start"`
	WeekEnd   string    `json:"week_end"`
	Summaries int       `json:"summaries"`
	CreatedAt time.Time `json:"created_at"`
}

// RunRequest asks a serving instance to run a pipeline stage
type RunRequest struct {
	Stage       string `json:"stage"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Publisher emits pipeline events
type Publisher interface {
	PublishScript(ctx context.Context, ev ScriptPublished) error
	Close() error
}

// KafkaPublisher sends events through a synchronous producer
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducerConfig returns the producer settings used for events
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	return cfg
}

// NewKafkaPublisher connects a producer to brokers
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishScript sends ev keyed by its week start
func (p *KafkaPublisher) PublishScript(ctx context.Context, ev ScriptPublished) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.WeekStart),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte("script.published")},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	return nil
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
