package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/erain9/routingo/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockConsumer) ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error) {
	return &mockPartitionConsumer{
		messages: m.messages,
		errors:   m.errors,
	}, nil
}

func (m *mockConsumer) Topics() ([]string, error) {
	return []string{}, nil
}

func (m *mockConsumer) Partitions(topic string) ([]int32, error) {
	return []int32{}, nil
}

func (m *mockConsumer) HighWaterMarks() map[string]map[int32]int64 {
	return nil
}

func (m *mockConsumer) Close() error {
	close(m.messages)
	close(m.errors)
	return nil
}

func (m *mockConsumer) Pause(topicPartitions map[string][]int32) {}

func (m *mockConsumer) Resume(topicPartitions map[string][]int32) {}

func (m *mockConsumer) PauseAll() {}

func (m *mockConsumer) ResumeAll() {}

type mockPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (m *mockPartitionConsumer) AsyncClose() {}

func (m *mockPartitionConsumer) Close() error {
	return nil
}

func (m *mockPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage {
	return m.messages
}

func (m *mockPartitionConsumer) Errors() <-chan *sarama.ConsumerError {
	return m.errors
}

func (m *mockPartitionConsumer) HighWaterMarkOffset() int64 {
	return 0
}

func (m *mockPartitionConsumer) IsPaused() bool {
	return false
}

func (m *mockPartitionConsumer) Pause() {}

func (m *mockPartitionConsumer) Resume() {}

func TestSaramaMessageSender_SendOutcomeMessage(t *testing.T) {
	producer := &mockProducer{}
	sender := NewSaramaMessageSender(producer, "order-outcomes")

	msg := &messaging.OutcomeMessage{
		OrderID:       "order-1",
		Status:        "confirmed",
		ChosenSource:  "raydium",
		TxHash:        "MOCKTX_abc",
		ExecutedPrice: "100.25",
		Attempts:      1,
	}

	require.NoError(t, sender.SendOutcomeMessage(msg))
	require.Len(t, producer.sentMessages, 1)

	sent := producer.sentMessages[0]
	assert.Equal(t, "order-outcomes", sent.Topic)

	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "order-1", string(key))

	value, err := sent.Value.Encode()
	require.NoError(t, err)

	var decoded messaging.OutcomeMessage
	require.NoError(t, json.Unmarshal(value, &decoded))
	assert.Equal(t, *msg, decoded)
}

func TestSenderPool_SendAndReuse(t *testing.T) {
	created := 0
	pool, err := NewSenderPool(2, func() (messaging.MessageSender, error) {
		created++
		return messaging.NewMockMessageSender(), nil
	})
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, 2, created)

	msg := &messaging.OutcomeMessage{OrderID: "order-1", Status: "failed", Error: "routing failed"}
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Send(context.Background(), msg))
	}

	// Reuse, not growth
	assert.Equal(t, 2, created)
}

func TestSenderPool_RejectsInvalidSize(t *testing.T) {
	_, err := NewSenderPool(0, func() (messaging.MessageSender, error) {
		return messaging.NewMockMessageSender(), nil
	})
	assert.Error(t, err)
}

func TestOutcomeConsumer_ConsumeOutcomeMessages(t *testing.T) {
	mc := &mockConsumer{
		messages: make(chan *sarama.ConsumerMessage, 1),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	consumer := NewOutcomeConsumer(mc, "order-outcomes")

	outcome := &messaging.OutcomeMessage{OrderID: "order-1", Status: "confirmed", TxHash: "MOCKTX_abc"}
	payload, err := json.Marshal(outcome)
	require.NoError(t, err)

	mc.messages <- &sarama.ConsumerMessage{Topic: "order-outcomes", Value: payload}

	received := make(chan *messaging.OutcomeMessage, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_ = consumer.ConsumeOutcomeMessages(ctx, func(msg *messaging.OutcomeMessage) error {
			received <- msg
			cancel()
			return nil
		})
	}()

	select {
	case msg := <-received:
		assert.Equal(t, *outcome, *msg)
	case <-ctx.Done():
		t.Fatal("Consumer did not deliver the message in time")
	}
}
