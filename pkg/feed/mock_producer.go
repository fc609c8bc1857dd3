package feed

import (
	"github.com/IBM/sarama"
)

// mockProducer records sent messages for tests. The embedded interface
// covers the transactional methods the feed never touches; calling one
// panics, which is the behavior a test wants.
type mockProducer struct {
	sarama.SyncProducer
	sentMessages []*sarama.ProducerMessage
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.sentMessages = append(m.sentMessages, msg)
	return 0, 0, nil
}

func (m *mockProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	m.sentMessages = append(m.sentMessages, msgs...)
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
