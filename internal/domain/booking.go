package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxTaxDecimals bounds the fractional digits accepted in a tax percent.
const maxTaxDecimals = 6

// BookingStatus represents the lifecycle state of a rental booking
type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "Scheduled"
	BookingStatusOngoing   BookingStatus = "Ongoing"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CanTransitionTo encodes Scheduled -> Ongoing -> Completed and Scheduled -> Cancelled.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusScheduled:
		return next == BookingStatusOngoing || next == BookingStatusCancelled
	case BookingStatusOngoing:
		return next == BookingStatusCompleted
	default:
		return false
	}
}

// TimeWindow is a closed time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration of the window; zero when End is not after Start.
func (w TimeWindow) Duration() time.Duration {
	if !w.End.After(w.Start) {
		return 0
	}
	return w.End.Sub(w.Start)
}

// ActualWindow is filled in at pickup and drop-off.
type ActualWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// RatePlan holds the pricing parameters attached to a booking
type RatePlan struct {
	PerTimeUnitRate Money   `json:"per_time_unit_rate"`
	TimeUnitMinutes int64   `json:"time_unit_minutes"`
	PerDistanceRate Money   `json:"per_distance_rate"`
	MinimumCharge   Money   `json:"minimum_charge"`
	TaxPercent      float64 `json:"tax_percent"`
}

// TimeUnit returns the billing granularity.
func (r RatePlan) TimeUnit() time.Duration {
	return time.Duration(r.TimeUnitMinutes) * time.Minute
}

// TaxRate returns TaxPercent as the exact fraction num/den, reading the
// percent as the shortest decimal that round-trips, so 12.345 is 12345/100000.
func (r RatePlan) TaxRate() (num, den int64, err error) {
	invalid := &BookingError{Kind: ErrInvalidInput, Field: "rate_plan.tax_percent", Value: r.TaxPercent,
		Message: "must be a non-negative decimal with at most " + strconv.Itoa(maxTaxDecimals) + " decimal places"}
	if r.TaxPercent < 0 || math.IsNaN(r.TaxPercent) || math.IsInf(r.TaxPercent, 0) {
		return 0, 0, invalid
	}

	whole, frac, _ := strings.Cut(strconv.FormatFloat(r.TaxPercent, 'f', -1, 64), ".")
	if len(frac) > maxTaxDecimals {
		return 0, 0, invalid
	}
	num, perr := strconv.ParseInt(whole+frac, 10, 64)
	if perr != nil {
		return 0, 0, invalid
	}
	den = 100
	for range frac {
		den *= 10
	}
	return num, den, nil
}

// Validate checks the plan can produce a bill.
func (r RatePlan) Validate() error {
	switch {
	case r.TimeUnitMinutes <= 0:
		return &BookingError{Kind: ErrInvalidInput, Field: "rate_plan.time_unit_minutes", Value: r.TimeUnitMinutes, Message: "must be positive"}
	case r.PerTimeUnitRate < 0 || r.PerDistanceRate < 0 || r.MinimumCharge < 0:
		return &BookingError{Kind: ErrInvalidInput, Field: "rate_plan", Message: "rates must not be negative"}
	}
	if _, _, err := r.TaxRate(); err != nil {
		return err
	}
	return nil
}

// Usage holds odometer readings taken at the checkpoints
type Usage struct {
	MeterStart   *int64     `json:"meter_start,omitempty"`
	MeterEnd     *int64     `json:"meter_end,omitempty"`
	MeterStartAt *time.Time `json:"meter_start_at,omitempty"`
	MeterEndAt   *time.Time `json:"meter_end_at,omitempty"`
}

// ElapsedUsage is the input to the billing calculator
type ElapsedUsage struct {
	Distance int64         `json:"distance"`
	Duration time.Duration `json:"duration"`
}

// BillingSnapshot is a computed bill, provisional until IsFinal
type BillingSnapshot struct {
	TimeUnits int64 `json:"time_units"`
	Distance  int64 `json:"distance"`
	Subtotal  Money `json:"subtotal"`
	Tax       Money `json:"tax"`
	Total     Money `json:"total"`
	IsFinal   bool  `json:"is_final"`
}

// Booking is the aggregate root. It is loaded, mutated and persisted as a unit.
type Booking struct {
	ID              string                            `json:"id"`
	VehicleID       string                            `json:"vehicle_id"`
	CustomerID      string                            `json:"customer_id"`
	SellerID        string                            `json:"seller_id"`
	Status          BookingStatus                     `json:"status"`
	ScheduledWindow TimeWindow                        `json:"scheduled_window"`
	ActualWindow    ActualWindow                      `json:"actual_window"`
	RatePlan        RatePlan                          `json:"rate_plan"`
	Usage           Usage                             `json:"usage"`
	Billing         BillingSnapshot                   `json:"billing"`
	Verification    map[Checkpoint]*VerificationRecord `json:"verification"`
	Payments        []PaymentEntry                    `json:"payments"`
	Notes           string                            `json:"notes,omitempty"`
	CancelReason    string                            `json:"cancel_reason,omitempty"`
	CompletedAt     *time.Time                        `json:"completed_at,omitempty"`
	CancelledAt     *time.Time                        `json:"cancelled_at,omitempty"`
	Version         int64                             `json:"version"`
	CreatedAt       time.Time                         `json:"created_at"`
	UpdatedAt       time.Time                         `json:"updated_at"`
}

// IsTerminal returns true for Completed and Cancelled bookings
func (b *Booking) IsTerminal() bool {
	return b.Status.IsTerminal()
}

// Record returns the verification record for a checkpoint, or nil.
func (b *Booking) Record(cp Checkpoint) *VerificationRecord {
	if b.Verification == nil {
		return nil
	}
	return b.Verification[cp]
}

// IsVerified reports whether the checkpoint has been verified.
func (b *Booking) IsVerified(cp Checkpoint) bool {
	rec := b.Record(cp)
	return rec != nil && rec.Verified
}

// AmountPaid sums the payment ledger.
func (b *Booking) AmountPaid() Money {
	var sum Money
	for _, p := range b.Payments {
		sum += p.Amount
	}
	return sum
}

// BalanceDue is the outstanding amount against the latest snapshot.
func (b *Booking) BalanceDue() Money {
	return b.Billing.Total - b.AmountPaid()
}

// Clone returns a deep copy so a mutation can be discarded on error.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.ActualWindow = ActualWindow{Start: cloneTime(b.ActualWindow.Start), End: cloneTime(b.ActualWindow.End)}
	c.Usage = Usage{
		MeterStart:   cloneInt(b.Usage.MeterStart),
		MeterEnd:     cloneInt(b.Usage.MeterEnd),
		MeterStartAt: cloneTime(b.Usage.MeterStartAt),
		MeterEndAt:   cloneTime(b.Usage.MeterEndAt),
	}
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	if b.Verification != nil {
		c.Verification = make(map[Checkpoint]*VerificationRecord, len(b.Verification))
		for k, v := range b.Verification {
			c.Verification[k] = v.Clone()
		}
	}
	if b.Payments != nil {
		c.Payments = make([]PaymentEntry, len(b.Payments))
		copy(c.Payments, b.Payments)
	}
	return &c
}

// MarshalJSON adds the derived ledger figures to the read model.
func (b Booking) MarshalJSON() ([]byte, error) {
	type booking Booking
	return json.Marshal(struct {
		booking
		AmountPaid Money `json:"amount_paid"`
		BalanceDue Money `json:"balance_due"`
	}{
		booking:    booking(b),
		AmountPaid: b.AmountPaid(),
		BalanceDue: b.BalanceDue(),
	})
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
