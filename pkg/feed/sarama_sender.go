// Package feed publishes terminal order outcomes to Kafka. The feed is
// strictly best-effort: the worker pool logs publish failures and moves on.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/erain9/routingo/pkg/messaging"
)

// SaramaMessageSender implements the MessageSender interface
// for sending outcome messages to Kafka
type SaramaMessageSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewSaramaMessageSender wraps an existing producer
func NewSaramaMessageSender(producer sarama.SyncProducer, topic string) *SaramaMessageSender {
	return &SaramaMessageSender{
		producer: producer,
		topic:    topic,
	}
}

// ConnectSaramaMessageSender creates a sender with its own sync producer
func ConnectSaramaMessageSender(brokers []string, topic string) (*SaramaMessageSender, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewSaramaMessageSender(producer, topic), nil
}

// SendOutcomeMessage sends the OutcomeMessage to the Kafka topic
func (s *SaramaMessageSender) SendOutcomeMessage(msg *messaging.OutcomeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome message: %w", err)
	}

	producerMsg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(msg.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := s.producer.SendMessage(producerMsg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the underlying producer
func (s *SaramaMessageSender) Close() error {
	return s.producer.Close()
}

// Ensure SaramaMessageSender implements MessageSender
var _ messaging.MessageSender = (*SaramaMessageSender)(nil)
