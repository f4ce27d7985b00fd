package domain

import (
	"time"
)

// PaymentMode is the channel a payment was collected through
type PaymentMode string

const (
	PaymentModeCash PaymentMode = "cash"
	PaymentModeApp  PaymentMode = "app"
	PaymentModeLink PaymentMode = "link"
)

// Valid reports whether m is a known payment mode.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeApp, PaymentModeLink:
		return true
	}
	return false
}

// PaymentEntry is one immutable line of the payment ledger
type PaymentEntry struct {
	ID          string      `json:"id"`
	Amount      Money       `json:"amount"`
	Mode        PaymentMode `json:"mode"`
	CollectedAt time.Time   `json:"collected_at"`
	Note        string      `json:"note,omitempty"`
	Reference   string      `json:"reference,omitempty"` // idempotency key, e.g. a Stripe PaymentIntent id
}

// PaymentLink is a hosted payment request for the outstanding balance
type PaymentLink struct {
	BookingID    string `json:"booking_id"`
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       Money  `json:"amount"`
	Currency     string `json:"currency"`
}
