package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	EventPaymentUpdated = "payment.updated"
	StatusCompleted     = "COMPLETED"

	refPrefix      = "square:"
	pointsPerMinor = 100
)

var (
	ErrMalformed        = errors.New("malformed webhook payload")
	ErrMissingReference = errors.New("event has neither event_id nor payment id")
)

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Payment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	AmountMoney       Money  `json:"amount_money"`
	CustomerID        string `json:"customer_id"`
	BuyerEmailAddress string `json:"buyer_email_address"`
	OrderID           string `json:"order_id"`
	LocationID        string `json:"location_id"`
}

type Event struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Object struct {
			Payment *Payment `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a webhook envelope. An empty body is an event with no type.
func ParseEvent(body []byte) (*Event, error) {
	ev := &Event{}
	if len(bytes.TrimSpace(body)) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(body, ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return ev, nil
}

func (e *Event) Payment() *Payment {
	return e.Data.Object.Payment
}

// Completed reports whether the event is a finished payment worth points.
func (e *Event) Completed() bool {
	p := e.Payment()
	return e.Type == EventPaymentUpdated && p != nil && p.Status == StatusCompleted
}

// RefID is the idempotency key for the credit: the event id, falling back
// to the payment id.
func (e *Event) RefID() (string, error) {
	if id := strings.TrimSpace(e.EventID); id != "" {
		return refPrefix + id, nil
	}
	if p := e.Payment(); p != nil && strings.TrimSpace(p.ID) != "" {
		return refPrefix + strings.TrimSpace(p.ID), nil
	}
	return "", ErrMissingReference
}

// PointsFor converts an amount in minor units to whole points, one per
// major unit, rounding down.
func PointsFor(amountMinor int64) int64 {
	if amountMinor <= 0 {
		return 0
	}
	return amountMinor / pointsPerMinor
}
