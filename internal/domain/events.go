package domain

import "time"

// EventType names a committed booking transition
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingOngoing   EventType = "booking.ongoing"
	EventBookingBilled    EventType = "booking.billed"
	EventBookingCompleted EventType = "booking.completed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventPaymentRecorded  EventType = "booking.payment_recorded"
)

// BookingEvent is handed to the notifier after a commit. Version is the
// committed booking version, so consumers can order events of one booking.
// Code is set only for created/ongoing events and is addressed to the customer channel.
type BookingEvent struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	BookingID  string        `json:"booking_id"`
	Version    int64         `json:"version"`
	SellerID   string        `json:"seller_id"`
	CustomerID string        `json:"customer_id"`
	Status     BookingStatus `json:"status"`
	Total      Money         `json:"total"`
	BalanceDue Money         `json:"balance_due"`
	Amount     Money         `json:"amount,omitempty"`
	Code       string        `json:"code,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Public returns a copy safe to broadcast to dashboards.
func (e BookingEvent) Public() BookingEvent {
	e.Code = ""
	return e
}
