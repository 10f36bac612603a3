package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

const (
	maxHandleAttempts = 3
	retryBackoff      = time.Second
)

// MessageHandler processes one message value. A non-nil error asks for a retry.
type MessageHandler interface {
	Handle(ctx context.Context, data []byte) error
}

// Consumer reads a topic as part of a consumer group and feeds each message
// to a MessageHandler. An offset is marked only once its message is handled.
// A message that still fails after its retries ends the session, so it is
// delivered again when the group rejoins.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler MessageHandler
}

// NewConsumer joins groupID on brokers.
func NewConsumer(brokers []string, groupID, topic string, handler MessageHandler) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start Kafka consumer group: %w", err)
	}

	return &Consumer{group: group, topic: topic, handler: handler}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			log.Printf("[KAFKA] consumer error: %v", err)
		}
	}()

	log.Printf("[KAFKA] listening on topic %s", c.topic)

	for {
		// Consume returns on every rebalance.
		if err := c.group.Consume(ctx, []string{c.topic}, groupHandler{handler: c.handler, backoff: retryBackoff}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			log.Printf("[KAFKA] consume %s: %v", c.topic, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler MessageHandler
	backoff time.Duration
}

func (groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := handleWithRetry(ctx, h.handler, msg.Value, h.backoff); err != nil {
				if ctx.Err() != nil {
					// Left unmarked for the next owner of the partition.
					return nil
				}
				return fmt.Errorf("message %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
			}
			session.MarkMessage(msg, "")
		case <-ctx.Done():
			return nil
		}
	}
}

// handleWithRetry returns nil once handler succeeds, the context error when
// the session ends mid-retry, or the last handler error.
func handleWithRetry(ctx context.Context, handler MessageHandler, data []byte, backoff time.Duration) error {
	var err error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		if err = handler.Handle(ctx, data); err == nil {
			return nil
		}
		log.Printf("[KAFKA] handle attempt %d/%d failed: %v", attempt, maxHandleAttempts, err)
		if attempt == maxHandleAttempts {
			break
		}

		select {
		case <-time.After(backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxHandleAttempts, err)
}
