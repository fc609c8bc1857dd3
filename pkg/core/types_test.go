package core

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
)

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"Pending", StatusPending, false},
		{"Routing", StatusRouting, false},
		{"Building", StatusBuilding, false},
		{"Submitted", StatusSubmitted, false},
		{"Confirmed", StatusConfirmed, true},
		{"Failed", StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusRouting.Valid() {
		t.Error("Expected routing to be a valid status")
	}

	if Status("shipped").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
}

func TestNewMarketOrder(t *testing.T) {
	amountIn := fpdecimal.FromFloat(10.5)

	order := NewMarketOrder("order-123", "user-1", "SOL", "USDC", amountIn)

	if order.ID() != "order-123" {
		t.Errorf("Expected ID order-123, got %s", order.ID())
	}

	if order.UserID() != "user-1" {
		t.Errorf("Expected UserID user-1, got %s", order.UserID())
	}

	if order.OrderType() != TypeMarket {
		t.Errorf("Expected type market, got %s", order.OrderType())
	}

	if order.TokenIn() != "SOL" || order.TokenOut() != "USDC" {
		t.Errorf("Expected pair SOL/USDC, got %s/%s", order.TokenIn(), order.TokenOut())
	}

	if !order.AmountIn().Equal(amountIn) {
		t.Errorf("Expected AmountIn %v, got %v", amountIn, order.AmountIn())
	}

	if order.Attempts() != 0 {
		t.Errorf("Expected 0 attempts, got %d", order.Attempts())
	}

	if order.CreatedAt().IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestOrderJSONRoundTrip(t *testing.T) {
	order := NewMarketOrder("order-123", "user-1", "SOL", "USDC", fpdecimal.FromFloat(10.0))
	order.SetAttempts(2)

	data, err := json.Marshal(order)
	if err != nil {
		t.Fatalf("Failed to marshal order: %v", err)
	}

	var decoded Order
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal order: %v", err)
	}

	if decoded.ID() != order.ID() {
		t.Errorf("Expected ID %s, got %s", order.ID(), decoded.ID())
	}

	if !decoded.AmountIn().Equal(order.AmountIn()) {
		t.Errorf("Expected AmountIn %v, got %v", order.AmountIn(), decoded.AmountIn())
	}

	if decoded.Attempts() != 2 {
		t.Errorf("Expected 2 attempts, got %d", decoded.Attempts())
	}
}

func TestStatusEventJSON(t *testing.T) {
	quote := &Quote{
		Source:    "raydium",
		Price:     fpdecimal.FromFloat(99.5),
		Fee:       fpdecimal.FromFloat(0.003),
		Liquidity: fpdecimal.FromInt(100000),
	}

	event := StatusEvent{
		OrderID:      "order-123",
		Status:       StatusBuilding,
		ChosenSource: "raydium",
		Quote:        quote,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"status":"building"`) {
		t.Errorf("Expected building status in payload, got %s", s)
	}
	if strings.Contains(s, "txHash") || strings.Contains(s, "error") {
		t.Errorf("Expected empty fields to be omitted, got %s", s)
	}

	var decoded StatusEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	if decoded.Quote == nil || !decoded.Quote.Price.Equal(quote.Price) {
		t.Errorf("Expected quote price %v, got %+v", quote.Price, decoded.Quote)
	}
}

func TestStatusEventTerminalJSON(t *testing.T) {
	event := StatusEvent{
		OrderID:       "order-123",
		Status:        StatusConfirmed,
		ChosenSource:  "meteora",
		TxHash:        "MOCKTX_abc",
		ExecutedPrice: fpdecimal.FromFloat(100.25),
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var decoded StatusEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	if decoded.TxHash != "MOCKTX_abc" {
		t.Errorf("Expected tx hash MOCKTX_abc, got %s", decoded.TxHash)
	}

	if !decoded.ExecutedPrice.Equal(event.ExecutedPrice) {
		t.Errorf("Expected executed price %v, got %v", event.ExecutedPrice, decoded.ExecutedPrice)
	}
}
