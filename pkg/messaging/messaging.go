package messaging

// MessageSender defines an interface for publishing order outcomes.
// This helps decouple the worker pool from specific implementations
// like Kafka in the db/queue package.
type MessageSender interface {
	SendOutcomeMessage(msg *OutcomeMessage) error
	Close() error
}

// OutcomeMessage represents the terminal result of one order, published
// to the outcome feed once the pipeline finishes with it. Delivery is
// best-effort: a feed failure never affects the order itself.
type OutcomeMessage struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	ChosenSource  string `json:"chosenSource,omitempty"`
	TxHash        string `json:"txHash,omitempty"`
	ExecutedPrice string `json:"executedPrice,omitempty"`
	Error         string `json:"error,omitempty"`
	Attempts      int    `json:"attempts"`
}
