package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/erain9/routingo/pkg/feed"
	"github.com/erain9/routingo/pkg/messaging"
)

// SetupConsumer starts a background consumer that pretty-prints every
// terminal outcome published to the feed. It exists for development and
// demos; production consumers own their subscription.
func SetupConsumer(ctx context.Context, logger zerolog.Logger, brokers []string, topic string) (*feed.OutcomeConsumer, error) {
	consumer, err := feed.ConnectOutcomeConsumer(brokers, topic)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create Kafka consumer - continuing without outcome tail")
		return nil, err
	}

	go func() {
		logger.Info().Msg("Starting outcome consumer")
		err := consumer.ConsumeOutcomeMessages(ctx, func(msg *messaging.OutcomeMessage) error {
			logger.Info().
				Str("order_id", msg.OrderID).
				Str("status", msg.Status).
				Str("chosen_source", msg.ChosenSource).
				Str("tx_hash", msg.TxHash).
				Str("executed_price", msg.ExecutedPrice).
				Str("error", msg.Error).
				Int("attempts", msg.Attempts).
				Msg("Received order outcome")
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Outcome consumer error")
		}
	}()

	return consumer, nil
}
