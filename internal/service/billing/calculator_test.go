package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/seu-repo/handover-engine/internal/domain"
)

func hourlyPlan() domain.RatePlan {
	return domain.RatePlan{
		PerTimeUnitRate: domain.NewMoney(100, 0),
		TimeUnitMinutes: 60,
		PerDistanceRate: domain.NewMoney(5, 0),
		MinimumCharge:   domain.NewMoney(150, 0),
		TaxPercent:      18,
	}
}

func TestCompute_PartialHoursRoundUp(t *testing.T) {
	// Arrange
	usage := domain.ElapsedUsage{Duration: 150 * time.Minute, Distance: 40}

	// Act
	snap, err := Compute(hourlyPlan(), usage)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.TimeUnits != 3 {
		t.Errorf("expected 3 billed hours, got %d", snap.TimeUnits)
	}
	if snap.Subtotal != domain.NewMoney(500, 0) {
		t.Errorf("expected subtotal 500.00, got %s", snap.Subtotal)
	}
	if snap.Tax != domain.NewMoney(90, 0) {
		t.Errorf("expected tax 90.00, got %s", snap.Tax)
	}
	if snap.Total != domain.NewMoney(590, 0) {
		t.Errorf("expected total 590.00, got %s", snap.Total)
	}
	if snap.IsFinal {
		t.Error("expected a provisional snapshot")
	}
}

func TestCompute_MinimumCharge(t *testing.T) {
	snap, err := Compute(hourlyPlan(), domain.ElapsedUsage{Duration: 10 * time.Minute})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.Subtotal != domain.NewMoney(150, 0) {
		t.Errorf("expected minimum charge 150.00, got %s", snap.Subtotal)
	}
	if snap.Total != domain.NewMoney(177, 0) {
		t.Errorf("expected total 177.00, got %s", snap.Total)
	}
}

func TestCompute_ExactUnitBoundary(t *testing.T) {
	snap, err := Compute(hourlyPlan(), domain.ElapsedUsage{Duration: 2 * time.Hour})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.TimeUnits != 2 {
		t.Errorf("expected 2 units, got %d", snap.TimeUnits)
	}
}

func TestCompute_TaxRoundsHalfUp(t *testing.T) {
	plan := domain.RatePlan{
		PerTimeUnitRate: domain.Money(1), // 0.01 per unit
		TimeUnitMinutes: 1,
		TaxPercent:      12.5,
	}
	// 4 minutes -> subtotal 0.04, tax 0.005 -> 0.01
	snap, err := Compute(plan, domain.ElapsedUsage{Duration: 4 * time.Minute})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snap.Tax != 1 {
		t.Errorf("expected tax 0.01, got %s", snap.Tax)
	}
}

func TestCompute_IsDeterministic(t *testing.T) {
	usage := domain.ElapsedUsage{Duration: 7*time.Hour + time.Second, Distance: 333}
	first, _ := Compute(hourlyPlan(), usage)
	for i := 0; i < 10; i++ {
		again, _ := Compute(hourlyPlan(), usage)
		if again != first {
			t.Fatalf("expected %+v, got %+v", first, again)
		}
	}
}

func TestCompute_InvalidPlan(t *testing.T) {
	plan := hourlyPlan()
	plan.TimeUnitMinutes = 0

	_, err := Compute(plan, domain.ElapsedUsage{Duration: time.Hour})

	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCompute_FractionalTaxPercentIsExact(t *testing.T) {
	plan := domain.RatePlan{
		TimeUnitMinutes: 60,
		MinimumCharge:   domain.NewMoney(1000, 0),
		TaxPercent:      12.345,
	}

	got, err := Compute(plan, domain.ElapsedUsage{})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Tax != domain.NewMoney(123, 45) {
		t.Errorf("expected tax 123.45, got %s", got.Tax)
	}
	if got.Total != domain.NewMoney(1123, 45) {
		t.Errorf("expected total 1123.45, got %s", got.Total)
	}
}

func TestCompute_TaxPercentTooPrecise(t *testing.T) {
	plan := hourlyPlan()
	plan.TaxPercent = 12.3456789

	_, err := Compute(plan, domain.ElapsedUsage{Duration: time.Hour})

	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
