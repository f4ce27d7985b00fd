package billing

import (
	"math"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// Compute prices usage against a rate plan. It is pure: the same inputs
// always produce the same snapshot, and the result is provisional.
func Compute(plan domain.RatePlan, usage domain.ElapsedUsage) (domain.BillingSnapshot, error) {
	if err := plan.Validate(); err != nil {
		return domain.BillingSnapshot{}, err
	}
	if usage.Distance < 0 || usage.Duration < 0 {
		return domain.BillingSnapshot{}, &domain.BookingError{Kind: domain.ErrInvalidReading, Field: "usage", Value: usage, Message: "usage must not be negative"}
	}

	unit := plan.TimeUnit()
	units := int64(usage.Duration / unit)
	if usage.Duration%unit != 0 {
		units++
	}

	timeCharge, ok := mul(units, int64(plan.PerTimeUnitRate))
	if !ok {
		return domain.BillingSnapshot{}, overflow(usage)
	}
	distanceCharge, ok := mul(usage.Distance, int64(plan.PerDistanceRate))
	if !ok {
		return domain.BillingSnapshot{}, overflow(usage)
	}
	if timeCharge > math.MaxInt64-distanceCharge {
		return domain.BillingSnapshot{}, overflow(usage)
	}

	subtotal := domain.Money(timeCharge + distanceCharge)
	if subtotal < plan.MinimumCharge {
		subtotal = plan.MinimumCharge
	}

	num, den, err := plan.TaxRate()
	if err != nil {
		return domain.BillingSnapshot{}, err
	}
	tax, ok := subtotal.MulRatio(num, den)
	if !ok || subtotal > math.MaxInt64-tax {
		return domain.BillingSnapshot{}, overflow(usage)
	}

	return domain.BillingSnapshot{
		TimeUnits: units,
		Distance:  usage.Distance,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal + tax,
	}, nil
}

func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a {
		return 0, false
	}
	return c, true
}

func overflow(usage domain.ElapsedUsage) error {
	return &domain.BookingError{Kind: domain.ErrInvalidReading, Field: "usage", Value: usage, Message: "bill exceeds representable amount"}
}
