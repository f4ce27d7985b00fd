package domain

import (
	"strings"
	"time"
)

// MaxNoteLength bounds free text stored on a booking.
const MaxNoteLength = 2000

// CreateBookingRequest opens a new Scheduled booking
type CreateBookingRequest struct {
	VehicleID  string     `json:"vehicle_id"`
	CustomerID string     `json:"customer_id"`
	SellerID   string     `json:"seller_id"`
	Window     TimeWindow `json:"scheduled_window"`
	Notes      string     `json:"notes,omitempty"`
}

func (r CreateBookingRequest) Validate() error {
	if err := requireID("vehicle_id", r.VehicleID); err != nil {
		return err
	}
	if err := requireID("customer_id", r.CustomerID); err != nil {
		return err
	}
	if err := requireID("seller_id", r.SellerID); err != nil {
		return err
	}
	if err := validateWindow(r.Window); err != nil {
		return err
	}
	return validateNotes(r.Notes)
}

// VerifyCodeRequest submits a code for a checkpoint
type VerifyCodeRequest struct {
	BookingID  string     `json:"-"`
	Checkpoint Checkpoint `json:"-"`
	Code       string     `json:"code"`
}

func (r VerifyCodeRequest) Validate() error {
	if err := requireID("booking_id", r.BookingID); err != nil {
		return err
	}
	if !r.Checkpoint.Valid() {
		return InvalidInput("checkpoint", r.Checkpoint, "unknown checkpoint")
	}
	if !IsWellFormedCode(r.Code) {
		return InvalidInput("code", r.Code, "code must be exactly 4 digits")
	}
	return nil
}

// BeginOngoingRequest starts the rental with the pickup odometer reading
type BeginOngoingRequest struct {
	BookingID         string `json:"-"`
	MeterStartReading int64  `json:"meter_start_reading"`
}

func (r BeginOngoingRequest) Validate() error {
	if err := requireID("booking_id", r.BookingID); err != nil {
		return err
	}
	if r.MeterStartReading < 0 {
		return InvalidInput("meter_start_reading", r.MeterStartReading, "reading must not be negative")
	}
	return nil
}

// RecalculateRequest records the drop-off reading and finalizes the bill.
// A zero ActualEndTime means "now".
type RecalculateRequest struct {
	BookingID       string    `json:"-"`
	MeterEndReading int64     `json:"meter_end_reading"`
	ActualEndTime   time.Time `json:"actual_end_time"`
}

func (r RecalculateRequest) Validate() error {
	if err := requireID("booking_id", r.BookingID); err != nil {
		return err
	}
	if r.MeterEndReading < 0 {
		return InvalidInput("meter_end_reading", r.MeterEndReading, "reading must not be negative")
	}
	return nil
}

// CancelRequest cancels a Scheduled booking
type CancelRequest struct {
	BookingID string `json:"-"`
	Reason    string `json:"reason"`
}

func (r CancelRequest) Validate() error {
	if err := requireID("booking_id", r.BookingID); err != nil {
		return err
	}
	return validateNotes(r.Reason)
}

// RecordPaymentRequest appends a collection to the ledger
type RecordPaymentRequest struct {
	BookingID string      `json:"-"`
	Amount    Money       `json:"amount"`
	Mode      PaymentMode `json:"mode"`
	Note      string      `json:"note,omitempty"`
	Reference string      `json:"reference,omitempty"`
}

func (r RecordPaymentRequest) Validate() error {
	if err := requireID("booking_id", r.BookingID); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return InvalidInput("amount", r.Amount, "amount must be positive")
	}
	if !r.Mode.Valid() {
		return InvalidInput("mode", r.Mode, "mode must be one of cash, app, link")
	}
	if len(r.Reference) > 255 {
		return InvalidInput("reference", r.Reference, "reference too long")
	}
	return validateNotes(r.Note)
}

// EditDetailsRequest changes the scheduled window and/or notes. Nil fields are left alone.
type EditDetailsRequest struct {
	BookingID string      `json:"-"`
	Window    *TimeWindow `json:"scheduled_window,omitempty"`
	Notes     *string     `json:"notes,omitempty"`
}

func (r EditDetailsRequest) Validate() error {
	if err := requireID("booking_id", r.BookingID); err != nil {
		return err
	}
	if r.Window == nil && r.Notes == nil {
		return InvalidInput("body", nil, "nothing to update")
	}
	if r.Window != nil {
		if err := validateWindow(*r.Window); err != nil {
			return err
		}
	}
	if r.Notes != nil {
		return validateNotes(*r.Notes)
	}
	return nil
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return InvalidInput(field, v, "must not be empty")
	}
	return nil
}

func validateWindow(w TimeWindow) error {
	if w.Start.IsZero() || w.End.IsZero() {
		return InvalidInput("scheduled_window", w, "start and end are required")
	}
	if !w.End.After(w.Start) {
		return InvalidInput("scheduled_window", w, "end must be after start")
	}
	return nil
}

func validateNotes(s string) error {
	if len(s) > MaxNoteLength {
		return InvalidInput("notes", len(s), "text too long")
	}
	return nil
}

// ValidateBookingID checks an operation that takes only a booking id.
func ValidateBookingID(id string) error {
	return requireID("booking_id", id)
}
