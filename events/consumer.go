package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/IBM/sarama"
)

// MessageHandler handles one consumed message
type MessageHandler interface {
	// HandleMessage reports whether the message should be marked. Unmarked
	// messages are redelivered after a rebalance or restart.
	HandleMessage(ctx context.Context, message []byte) (mark bool, err error)
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
}

// Consumer feeds one topic, read through a consumer group, into a
// MessageHandler
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
	log     *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
}

// NewConsumerConfig is the sarama config used by run-request consumers
func NewConsumerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	// requests sent while no instance was serving are stale
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	return cfg
}

// NewConsumer connects a consumer group
func NewConsumer(cfg ConsumerConfig, log *slog.Logger) (*Consumer, error) {
	if cfg.Handler == nil {
		return nil, errors.New("consumer handler is required")
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, NewConsumerConfig())
	if err != nil {
		return nil, err
	}
	return newConsumer(group, cfg, log), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig, log *slog.Logger) *Consumer {
	return &Consumer{
		group:   group,
		handler: cfg.Handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		log:     log,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the consume loop and returns immediately. Ready is closed
// once the first session is set up.
func (c *Consumer) Start(ctx context.Context) {
	if c.started.Swap(true) {
		return
	}
	go c.drainErrors()
	go func() {
		defer close(c.done)
		for {
			// Consume returns on every rebalance; loop to rejoin
			err := c.group.Consume(ctx, []string{c.topic}, c)
			switch {
			case errors.Is(err, sarama.ErrClosedConsumerGroup), errors.Is(err, context.Canceled):
				c.log.Info("Kafka consumer stopped", "topic", c.topic)
				return
			case err != nil:
				c.log.Error("Kafka consume error", "topic", c.topic, "error", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Ready is closed when the consumer has joined its group
func (c *Consumer) Ready() <-chan struct{} { return c.ready }

// Close leaves the group and waits for the consume loop to exit
func (c *Consumer) Close() error {
	err := c.group.Close()
	if c.started.Load() {
		<-c.done
	}
	return err
}

func (c *Consumer) drainErrors() {
	for err := range c.group.Errors() {
		c.log.Error("Kafka consumer error", "error", err)
	}
}

// Setup implements sarama.ConsumerGroupHandler
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.readyOnce.Do(func() {
		close(c.ready)
		c.log.Info("Kafka consumer joined group", "group", c.groupID, "topic", c.topic)
	})
	return nil
}

// Cleanup implements sarama.ConsumerGroupHandler
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.log.Debug("Received Kafka message",
				"partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))

			mark, err := c.handler.HandleMessage(session.Context(), msg.Value)
			if err != nil {
				c.log.Error("Failed to handle message", "offset", msg.Offset, "error", err)
			}
			if mark {
				session.MarkMessage(msg, "")
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes JSON messages into T before processing
type TypedMessageHandler[T any] struct {
	// Validate rejects messages that decode but should not be processed
	Validate func(msg *T) bool
	// Process handles a decoded, valid message
	Process func(ctx context.Context, msg *T) error
	// AlwaysMark marks undecodable or rejected messages so they are skipped
	AlwaysMark bool
}

// HandleMessage implements MessageHandler
func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if json.Unmarshal(message, &msg) != nil {
		return h.AlwaysMark, nil
	}
	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}
	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
