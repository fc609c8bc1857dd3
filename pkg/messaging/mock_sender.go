package messaging

import "sync"

// MockMessageSender records outcome messages for tests.
type MockMessageSender struct {
	mu   sync.Mutex
	sent []*OutcomeMessage
}

// NewMockMessageSender creates a new MockMessageSender.
func NewMockMessageSender() *MockMessageSender {
	return &MockMessageSender{}
}

// SendOutcomeMessage records the message.
func (m *MockMessageSender) SendOutcomeMessage(msg *OutcomeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// SentMessages returns a copy of everything sent so far.
func (m *MockMessageSender) SentMessages() []*OutcomeMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*OutcomeMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// ClearSentMessages resets the recorded messages.
func (m *MockMessageSender) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// Close does nothing.
func (m *MockMessageSender) Close() error {
	// No-op
	return nil
}

// Ensure MockMessageSender implements MessageSender
var _ MessageSender = (*MockMessageSender)(nil)
