package core

import (
	"encoding/json"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// OrderType represents type of the order
type OrderType string

// Order types. Only market orders are executable today; the constant set
// exists so the submission boundary can reject the rest by name.
const (
	TypeMarket OrderType = "market"
)

// Status represents a lifecycle stage of an order inside the pipeline
type Status string

// Order lifecycle statuses, in canonical emission order
const (
	StatusPending   Status = "pending"
	StatusRouting   Status = "routing"
	StatusBuilding  Status = "building"
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status ends an order's event stream
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Valid reports whether s is one of the known lifecycle statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRouting, StatusBuilding, StatusSubmitted, StatusConfirmed, StatusFailed:
		return true
	default:
		return false
	}
}

// Order stores information about a swap order
type Order struct {
	id        string
	userID    string
	orderType OrderType
	tokenIn   string
	tokenOut  string
	amountIn  fpdecimal.Decimal
	createdAt time.Time
	attempts  int
}

// NewMarketOrder creates a market swap order
func NewMarketOrder(id, userID, tokenIn, tokenOut string, amountIn fpdecimal.Decimal) *Order {
	return &Order{
		id:        id,
		userID:    userID,
		orderType: TypeMarket,
		tokenIn:   tokenIn,
		tokenOut:  tokenOut,
		amountIn:  amountIn,
		createdAt: time.Now().UTC(),
	}
}

// ID returns the order identifier
func (o *Order) ID() string {
	return o.id
}

// UserID returns the owning user identifier
func (o *Order) UserID() string {
	return o.userID
}

// OrderType returns the order type
func (o *Order) OrderType() OrderType {
	return o.orderType
}

// TokenIn returns the input token symbol
func (o *Order) TokenIn() string {
	return o.tokenIn
}

// TokenOut returns the output token symbol
func (o *Order) TokenOut() string {
	return o.tokenOut
}

// AmountIn returns the input amount
func (o *Order) AmountIn() fpdecimal.Decimal {
	return o.amountIn
}

// CreatedAt returns the submission timestamp
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// Attempts returns how many execution attempts this order has consumed
func (o *Order) Attempts() int {
	return o.attempts
}

// SetAttempts overwrites the attempt counter. The queue mirrors its own
// attempt count into the order on each retry.
func (o *Order) SetAttempts(n int) {
	o.attempts = n
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	type OrderJSON struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		OrderType OrderType `json:"type"`
		TokenIn   string    `json:"tokenIn"`
		TokenOut  string    `json:"tokenOut"`
		AmountIn  string    `json:"amountIn"`
		CreatedAt time.Time `json:"createdAt"`
		Attempts  int       `json:"attempts"`
	}

	return json.Marshal(OrderJSON{
		ID:        o.id,
		UserID:    o.userID,
		OrderType: o.orderType,
		TokenIn:   o.tokenIn,
		TokenOut:  o.tokenOut,
		AmountIn:  o.amountIn.String(),
		CreatedAt: o.createdAt,
		Attempts:  o.attempts,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	type OrderJSON struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		OrderType OrderType `json:"type"`
		TokenIn   string    `json:"tokenIn"`
		TokenOut  string    `json:"tokenOut"`
		AmountIn  string    `json:"amountIn"`
		CreatedAt time.Time `json:"createdAt"`
		Attempts  int       `json:"attempts"`
	}

	var oj OrderJSON
	if err := json.Unmarshal(data, &oj); err != nil {
		return err
	}

	amountIn, err := fpdecimal.FromString(oj.AmountIn)
	if err != nil {
		return err
	}

	o.id = oj.ID
	o.userID = oj.UserID
	o.orderType = oj.OrderType
	o.tokenIn = oj.TokenIn
	o.tokenOut = oj.TokenOut
	o.amountIn = amountIn
	o.createdAt = oj.CreatedAt
	o.attempts = oj.Attempts

	return nil
}

// Quote is a priced offer from one liquidity source. Quotes live only for
// the duration of a single execution attempt and are never persisted.
type Quote struct {
	Source    string
	Price     fpdecimal.Decimal
	Fee       fpdecimal.Decimal
	Liquidity fpdecimal.Decimal
}

// quoteJSON mirrors Quote with decimals rendered as strings
type quoteJSON struct {
	Source    string `json:"source"`
	Price     string `json:"price"`
	Fee       string `json:"fee"`
	Liquidity string `json:"liquidity,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for Quote
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(quoteJSON{
		Source:    q.Source,
		Price:     q.Price.String(),
		Fee:       q.Fee.String(),
		Liquidity: q.Liquidity.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Quote
func (q *Quote) UnmarshalJSON(data []byte) error {
	var qj quoteJSON
	if err := json.Unmarshal(data, &qj); err != nil {
		return err
	}

	price, err := fpdecimal.FromString(qj.Price)
	if err != nil {
		return err
	}
	fee, err := fpdecimal.FromString(qj.Fee)
	if err != nil {
		return err
	}
	liquidity := fpdecimal.Zero
	if qj.Liquidity != "" {
		liquidity, err = fpdecimal.FromString(qj.Liquidity)
		if err != nil {
			return err
		}
	}

	q.Source = qj.Source
	q.Price = price
	q.Fee = fee
	q.Liquidity = liquidity

	return nil
}

// ExecResult is the outcome of a successful trade execution
type ExecResult struct {
	TxHash        string
	ExecutedPrice fpdecimal.Decimal
}

// StatusEvent is a single lifecycle notification for one order. Events are
// transient: broadcast to subscribers, never stored.
type StatusEvent struct {
	OrderID       string
	Status        Status
	ChosenSource  string
	Quote         *Quote
	TxHash        string
	ExecutedPrice fpdecimal.Decimal
	Error         string
}

// statusEventJSON is the wire shape delivered to subscribers
type statusEventJSON struct {
	OrderID       string `json:"orderId"`
	Status        Status `json:"status"`
	ChosenSource  string `json:"chosenSource,omitempty"`
	Quote         *Quote `json:"quote,omitempty"`
	TxHash        string `json:"txHash,omitempty"`
	ExecutedPrice string `json:"executedPrice,omitempty"`
	Error         string `json:"error,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for StatusEvent
func (e StatusEvent) MarshalJSON() ([]byte, error) {
	executedPrice := ""
	if !e.ExecutedPrice.Equal(fpdecimal.Zero) {
		executedPrice = e.ExecutedPrice.String()
	}

	return json.Marshal(statusEventJSON{
		OrderID:       e.OrderID,
		Status:        e.Status,
		ChosenSource:  e.ChosenSource,
		Quote:         e.Quote,
		TxHash:        e.TxHash,
		ExecutedPrice: executedPrice,
		Error:         e.Error,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for StatusEvent
func (e *StatusEvent) UnmarshalJSON(data []byte) error {
	var ej statusEventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	executedPrice := fpdecimal.Zero
	if ej.ExecutedPrice != "" {
		var err error
		executedPrice, err = fpdecimal.FromString(ej.ExecutedPrice)
		if err != nil {
			return err
		}
	}

	e.OrderID = ej.OrderID
	e.Status = ej.Status
	e.ChosenSource = ej.ChosenSource
	e.Quote = ej.Quote
	e.TxHash = ej.TxHash
	e.ExecutedPrice = executedPrice
	e.Error = ej.Error

	return nil
}
