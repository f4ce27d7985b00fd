package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// Append adds a collection to the booking's ledger.
//
// A non-empty Reference makes the call idempotent: if an entry with the same
// reference exists it is returned with created=false and nothing changes.
// The running total may never exceed the latest billing snapshot.
func Append(b *domain.Booking, amount domain.Money, mode domain.PaymentMode, note, reference string, at time.Time) (entry *domain.PaymentEntry, created bool, err error) {
	if amount <= 0 {
		return nil, false, domain.NewBookingError(domain.ErrInvalidInput, b, "amount must be positive").WithValue("amount", amount)
	}
	if !mode.Valid() {
		return nil, false, domain.NewBookingError(domain.ErrInvalidInput, b, "unknown payment mode").WithValue("mode", mode)
	}

	if reference != "" {
		if existing := FindByReference(b, reference); existing != nil {
			if existing.Amount != amount {
				return nil, false, domain.NewBookingError(domain.ErrInvalidInput, b, "reference already recorded with a different amount").
					WithValue("reference", reference)
			}
			return existing, false, nil
		}
	}

	if err := checkCovered(b, b.AmountPaid(), amount, b.Billing.Total); err != nil {
		return nil, false, err
	}

	b.Payments = append(b.Payments, domain.PaymentEntry{
		ID:          uuid.New().String(),
		Amount:      amount,
		Mode:        mode,
		CollectedAt: at,
		Note:        note,
		Reference:   reference,
	})
	return &b.Payments[len(b.Payments)-1], true, nil
}

// FindByReference returns the entry recorded under reference, or nil.
func FindByReference(b *domain.Booking, reference string) *domain.PaymentEntry {
	for i := range b.Payments {
		if b.Payments[i].Reference == reference {
			return &b.Payments[i]
		}
	}
	return nil
}

// EnsureCovers rejects a re-priced total that would leave the booking overpaid.
func EnsureCovers(b *domain.Booking, newTotal domain.Money) error {
	return checkCovered(b, b.AmountPaid(), 0, newTotal)
}

// checkCovered compares against the remaining headroom so that a huge
// amount cannot wrap the running sum.
func checkCovered(b *domain.Booking, paid, amount, total domain.Money) error {
	if paid > total || amount > total-paid {
		return domain.NewBookingError(domain.ErrOverpaymentRejected, b, "collected amount would exceed billed total "+total.String()).
			WithValue("amount_paid", paid)
	}
	return nil
}
