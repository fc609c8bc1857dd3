package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/erain9/routingo/pkg/messaging"
	"github.com/rs/zerolog"
)

// OutcomeConsumer reads outcome messages back from the Kafka topic. It is
// used by operational tooling to tail the feed; the pipeline itself never
// consumes its own outcomes.
type OutcomeConsumer struct {
	consumer sarama.Consumer
	topic    string
}

// NewOutcomeConsumer wraps an existing consumer
func NewOutcomeConsumer(consumer sarama.Consumer, topic string) *OutcomeConsumer {
	return &OutcomeConsumer{
		consumer: consumer,
		topic:    topic,
	}
}

// ConnectOutcomeConsumer creates a consumer with its own connection
func ConnectOutcomeConsumer(brokers []string, topic string) (*OutcomeConsumer, error) {
	consumer, err := sarama.NewConsumer(brokers, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return NewOutcomeConsumer(consumer, topic), nil
}

// ConsumeOutcomeMessages delivers each new outcome message to the handler
// until the context is done
func (c *OutcomeConsumer) ConsumeOutcomeMessages(ctx context.Context, handler func(*messaging.OutcomeMessage) error) error {
	partitionConsumer, err := c.consumer.ConsumePartition(c.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	logger := zerolog.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}
			var outcome messaging.OutcomeMessage
			if err := json.Unmarshal(msg.Value, &outcome); err != nil {
				logger.Warn().Err(err).Msg("Skipping malformed outcome message")
				continue
			}
			if err := handler(&outcome); err != nil {
				return err
			}
		case consumeErr, ok := <-partitionConsumer.Errors():
			if !ok {
				return nil
			}
			logger.Error().Err(consumeErr).Msg("Kafka consumer error")
		}
	}
}

// Close closes the underlying consumer
func (c *OutcomeConsumer) Close() error {
	return c.consumer.Close()
}
