package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/adapter/lock"
	"github.com/seu-repo/handover-engine/internal/adapter/storage/memory"
	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/mocks"
	"github.com/seu-repo/handover-engine/internal/ports"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *Service
	repo     *memory.BookingRepository
	cache    *mocks.MockCache
	notifier *mocks.MockNotifier
	gateway  *mocks.MockPaymentGateway
	clock    *testClock
}

var pickupAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func hourlyPlan() domain.RatePlan {
	return domain.RatePlan{
		PerTimeUnitRate: domain.NewMoney(100, 0),
		TimeUnitMinutes: 60,
		PerDistanceRate: domain.NewMoney(5, 0),
		MinimumCharge:   domain.NewMoney(150, 0),
		TaxPercent:      18,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     memory.NewBookingRepository(),
		cache:    mocks.NewMockCache(),
		notifier: &mocks.MockNotifier{},
		gateway:  &mocks.MockPaymentGateway{},
		clock:    &testClock{now: pickupAt.Add(-24 * time.Hour)},
	}
	vehicles := &mocks.MockVehicleCatalog{
		GetVehicleFunc: func(ctx context.Context, id string) (*domain.Vehicle, error) {
			if id != "vehicle-1" {
				return nil, nil
			}
			return &domain.Vehicle{ID: id, SellerID: "seller-1", Active: true, RatePlan: hourlyPlan()}, nil
		},
	}
	customers := &mocks.MockCustomerDirectory{
		GetCustomerFunc: func(ctx context.Context, id string) (*domain.Customer, error) {
			if id != "customer-1" {
				return nil, nil
			}
			return &domain.Customer{ID: id, Name: "Asha"}, nil
		},
	}
	f.svc = NewService(f.repo, lock.NewLocalLocker(5*time.Second), f.cache, vehicles, customers, f.notifier, newTestLogger(),
		WithClock(f.clock.Now),
		WithPaymentGateway(f.gateway, "INR"),
	)
	return f
}

func (f *fixture) create(t *testing.T) *domain.Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		VehicleID:  "vehicle-1",
		CustomerID: "customer-1",
		SellerID:   "seller-1",
		Window:     domain.TimeWindow{Start: pickupAt, End: pickupAt.Add(4 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) code(t *testing.T, id string, cp domain.Checkpoint) string {
	t.Helper()
	b, _ := f.repo.FindByID(context.Background(), id)
	rec := b.Record(cp)
	if rec == nil {
		t.Fatalf("no %s code issued", cp)
	}
	return rec.Code
}

func (f *fixture) stored(t *testing.T, id string) *domain.Booking {
	t.Helper()
	b, err := f.repo.FindByID(context.Background(), id)
	if err != nil || b == nil {
		t.Fatalf("load booking: %v", err)
	}
	return b
}

// ongoing drives a booking to Ongoing with meterStart=100.
func (f *fixture) ongoing(t *testing.T) *domain.Booking {
	t.Helper()
	ctx := context.Background()
	b := f.create(t)
	if _, err := f.svc.VerifyPickup(ctx, b.ID, f.code(t, b.ID, domain.CheckpointPickup)); err != nil {
		t.Fatalf("verify pickup: %v", err)
	}
	f.clock.now = pickupAt
	b, err := f.svc.BeginOngoing(ctx, domain.BeginOngoingRequest{BookingID: b.ID, MeterStartReading: 100})
	if err != nil {
		t.Fatalf("begin ongoing: %v", err)
	}
	return b
}

func wrongCode(code string) string {
	if code == "0000" {
		return "1111"
	}
	return "0000"
}

func TestCreateBooking_Success(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	b := f.create(t)

	// Assert
	if b.Status != domain.BookingStatusScheduled {
		t.Errorf("expected Scheduled, got %s", b.Status)
	}
	if b.Version != 1 {
		t.Errorf("expected version 1, got %d", b.Version)
	}
	// 4h scheduled * 100 = 400 + 18% tax
	if b.Billing.Total != domain.NewMoney(472, 0) || b.Billing.IsFinal {
		t.Errorf("expected provisional total 472.00, got %+v", b.Billing)
	}
	if len(f.notifier.Events) != 1 || f.notifier.Events[0].Type != domain.EventBookingCreated {
		t.Fatalf("expected booking.created event, got %v", f.notifier.EventTypes())
	}
	if f.notifier.Events[0].Code != f.code(t, b.ID, domain.CheckpointPickup) {
		t.Error("expected created event to carry the pickup code")
	}
}

func TestCreateBooking_UnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		VehicleID:  "vehicle-1",
		CustomerID: "ghost",
		SellerID:   "seller-1",
		Window:     domain.TimeWindow{Start: pickupAt, End: pickupAt.Add(time.Hour)},
	})

	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateBooking_InvalidWindow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), domain.CreateBookingRequest{
		VehicleID:  "vehicle-1",
		CustomerID: "customer-1",
		SellerID:   "seller-1",
		Window:     domain.TimeWindow{Start: pickupAt, End: pickupAt},
	})

	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBeginOngoing_BeforePickupVerified(t *testing.T) {
	// Arrange
	f := newFixture(t)
	b := f.create(t)

	// Act
	_, err := f.svc.BeginOngoing(context.Background(), domain.BeginOngoingRequest{BookingID: b.ID, MeterStartReading: 100})

	// Assert
	if !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
	be, ok := domain.AsBookingError(err)
	if !ok || be.BookingID != b.ID || be.Status != domain.BookingStatusScheduled {
		t.Errorf("expected error context for %s, got %+v", b.ID, be)
	}
	stored := f.stored(t, b.ID)
	if stored.Status != domain.BookingStatusScheduled || stored.Usage.MeterStart != nil {
		t.Errorf("expected no mutation, got status=%s usage=%+v", stored.Status, stored.Usage)
	}
}

func TestVerifyPickup_Idempotent(t *testing.T) {
	f := newFixture(t)
	b := f.create(t)
	code := f.code(t, b.ID, domain.CheckpointPickup)
	ctx := context.Background()

	first, err := f.svc.VerifyPickup(ctx, b.ID, code)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	f.clock.Advance(time.Minute)
	second, err := f.svc.VerifyPickup(ctx, b.ID, code)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !first.Verified || first.AlreadyVerified {
		t.Errorf("first call: expected verified, not already verified; got %+v", first)
	}
	if !second.Verified || !second.AlreadyVerified {
		t.Errorf("second call: expected already verified; got %+v", second)
	}
	if !first.VerifiedAt.Equal(*second.VerifiedAt) {
		t.Errorf("verifiedAt changed from %v to %v", first.VerifiedAt, second.VerifiedAt)
	}
}

func TestVerifyPickup_WrongCodePersistsAttempts(t *testing.T) {
	f := newFixture(t)
	b := f.create(t)
	code := f.code(t, b.ID, domain.CheckpointPickup)

	_, err := f.svc.VerifyPickup(context.Background(), b.ID, wrongCode(code))

	if !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	rec := f.stored(t, b.ID).Record(domain.CheckpointPickup)
	if rec.Attempts != 1 || rec.Verified {
		t.Errorf("expected 1 unverified attempt, got %+v", rec)
	}
}

func TestVerifyPickup_MismatchAfterVerified(t *testing.T) {
	f := newFixture(t)
	b := f.create(t)
	code := f.code(t, b.ID, domain.CheckpointPickup)
	ctx := context.Background()
	_, _ = f.svc.VerifyPickup(ctx, b.ID, code)
	before := f.stored(t, b.ID)

	_, err := f.svc.VerifyPickup(ctx, b.ID, wrongCode(code))

	if !errors.Is(err, domain.ErrMismatchAfterVerified) {
		t.Fatalf("expected ErrMismatchAfterVerified, got %v", err)
	}
	if after := f.stored(t, b.ID); after.Version != before.Version {
		t.Errorf("expected no write, version moved %d -> %d", before.Version, after.Version)
	}
}

func TestVerifyDropoff_RequiresOngoing(t *testing.T) {
	f := newFixture(t)
	b := f.create(t)

	_, err := f.svc.VerifyDropoff(context.Background(), b.ID, "1234")

	if !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestLifecycle_ScheduledToCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.ongoing(t)

	if b.Status != domain.BookingStatusOngoing || !b.ActualWindow.Start.Equal(pickupAt) {
		t.Fatalf("expected Ongoing from %v, got %s %v", pickupAt, b.Status, b.ActualWindow.Start)
	}

	f.clock.Advance(150 * time.Minute)
	snap, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 140})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if snap.Subtotal != domain.NewMoney(500, 0) || snap.Tax != domain.NewMoney(90, 0) || snap.Total != domain.NewMoney(590, 0) || !snap.IsFinal {
		t.Fatalf("expected final 500/90/590, got %+v", snap)
	}

	if _, err := f.svc.CompleteBooking(ctx, b.ID); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected completion to wait for drop-off verification, got %v", err)
	}

	if _, err := f.svc.VerifyDropoff(ctx, b.ID, f.code(t, b.ID, domain.CheckpointDropoff)); err != nil {
		t.Fatalf("verify dropoff: %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.NewMoney(590, 0), Mode: domain.PaymentModeCash}); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	done, err := f.svc.CompleteBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.BookingStatusCompleted || done.CompletedAt == nil {
		t.Errorf("expected Completed with timestamp, got %s", done.Status)
	}
	if done.BalanceDue() != 0 {
		t.Errorf("expected zero balance, got %s", done.BalanceDue())
	}

	want := []domain.EventType{
		domain.EventBookingCreated,
		domain.EventBookingOngoing,
		domain.EventBookingBilled,
		domain.EventPaymentRecorded,
		domain.EventBookingCompleted,
	}
	got := f.notifier.EventTypes()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Terminal: no further transitions
	if _, err := f.svc.CancelBooking(ctx, domain.CancelRequest{BookingID: b.ID}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("expected cancel after completion to fail, got %v", err)
	}
	if _, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 500}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("expected recalculation after completion to fail, got %v", err)
	}
	notes := "late return"
	if _, err := f.svc.EditDetails(ctx, domain.EditDetailsRequest{BookingID: b.ID, Notes: &notes}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("expected edit after completion to fail, got %v", err)
	}
}

func TestCompleteBooking_DropoffVerifiedWithoutRecalculation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.ongoing(t)

	if _, err := f.svc.VerifyDropoff(ctx, b.ID, f.code(t, b.ID, domain.CheckpointDropoff)); err != nil {
		t.Fatalf("verify dropoff: %v", err)
	}
	f.notifier.Events = nil

	_, err := f.svc.CompleteBooking(ctx, b.ID)
	if !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}

	stored := f.stored(t, b.ID)
	if stored.Status != domain.BookingStatusOngoing || stored.CompletedAt != nil {
		t.Errorf("expected booking to stay Ongoing, got %s", stored.Status)
	}
	if stored.Billing.IsFinal {
		t.Error("expected the provisional bill to remain")
	}
	if len(f.notifier.Events) != 0 {
		t.Errorf("expected no events, got %v", f.notifier.EventTypes())
	}
}

func TestLifecycle_EventVersionsFollowCommits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.ongoing(t)

	f.clock.Advance(time.Hour)
	if _, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 120}); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if _, err := f.svc.VerifyDropoff(ctx, b.ID, f.code(t, b.ID, domain.CheckpointDropoff)); err != nil {
		t.Fatalf("verify dropoff: %v", err)
	}
	if _, err := f.svc.CompleteBooking(ctx, b.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	events := f.notifier.Events
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %v", f.notifier.EventTypes())
	}
	if events[0].Type != domain.EventBookingCreated || events[0].Version != 1 {
		t.Errorf("expected created at version 1, got %s at %d", events[0].Type, events[0].Version)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Version <= events[i-1].Version {
			t.Errorf("event %s version %d does not follow %d", events[i].Type, events[i].Version, events[i-1].Version)
		}
	}
	if last := events[len(events)-1]; last.Version != f.stored(t, b.ID).Version {
		t.Errorf("expected completion event at stored version %d, got %d", f.stored(t, b.ID).Version, last.Version)
	}
}

func TestRecordPayment_Overpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.ongoing(t)
	f.clock.Advance(150 * time.Minute)
	if _, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 140}); err != nil {
		t.Fatalf("recalculate: %v", err)
	}

	if _, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.NewMoney(590, 0), Mode: domain.PaymentModeApp}); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	_, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.Money(1), Mode: domain.PaymentModeCash})

	if !errors.Is(err, domain.ErrOverpaymentRejected) {
		t.Fatalf("expected ErrOverpaymentRejected, got %v", err)
	}
	if paid := f.stored(t, b.ID).AmountPaid(); paid != domain.NewMoney(590, 0) {
		t.Errorf("expected ledger sum 590.00, got %s", paid)
	}
}

func TestRecalculateOnDrop_ReadingBelowStart(t *testing.T) {
	f := newFixture(t)
	b := f.ongoing(t)

	_, err := f.svc.RecalculateOnDrop(context.Background(), domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 95})

	if !errors.Is(err, domain.ErrInvalidReading) {
		t.Fatalf("expected ErrInvalidReading, got %v", err)
	}
	stored := f.stored(t, b.ID)
	if stored.Usage.MeterEnd != nil {
		t.Errorf("expected meterEnd unset, got %d", *stored.Usage.MeterEnd)
	}
	if stored.Status != domain.BookingStatusOngoing {
		t.Errorf("expected Ongoing, got %s", stored.Status)
	}
	if stored.Billing.IsFinal {
		t.Error("expected billing to stay provisional")
	}
}

func TestRecalculateOnDrop_EndBeforeStart(t *testing.T) {
	f := newFixture(t)
	b := f.ongoing(t)

	_, err := f.svc.RecalculateOnDrop(context.Background(), domain.RecalculateRequest{
		BookingID:       b.ID,
		MeterEndReading: 120,
		ActualEndTime:   pickupAt.Add(-time.Minute),
	})

	if !errors.Is(err, domain.ErrInvalidReading) {
		t.Fatalf("expected ErrInvalidReading, got %v", err)
	}
}

func TestRecalculateOnDrop_CorrectableUntilDropoffVerified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.ongoing(t)
	end := pickupAt.Add(150 * time.Minute)

	first, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 180, ActualEndTime: end})
	if err != nil {
		t.Fatalf("first recalculation: %v", err)
	}
	corrected, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 140, ActualEndTime: end})
	if err != nil {
		t.Fatalf("corrected recalculation: %v", err)
	}
	if first.Total == corrected.Total {
		t.Fatal("expected a corrected reading to replace the snapshot")
	}
	if corrected.Total != domain.NewMoney(590, 0) {
		t.Errorf("expected 590.00, got %s", corrected.Total)
	}

	if _, err := f.svc.VerifyDropoff(ctx, b.ID, f.code(t, b.ID, domain.CheckpointDropoff)); err != nil {
		t.Fatalf("verify dropoff: %v", err)
	}

	frozen, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 999, ActualEndTime: end.Add(5 * time.Hour)})
	if err != nil {
		t.Fatalf("frozen recalculation: %v", err)
	}
	if *frozen != *corrected {
		t.Errorf("expected frozen snapshot %+v, got %+v", corrected, frozen)
	}
	if *f.stored(t, b.ID).Usage.MeterEnd != 140 {
		t.Error("expected frozen call to ignore its inputs")
	}
}

func TestRecalculateOnDrop_RejectsRepricingBelowPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.ongoing(t)

	// Provisional total is 472.00; collect it all up front.
	if _, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.NewMoney(472, 0), Mode: domain.PaymentModeCash}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	_, err := f.svc.RecalculateOnDrop(ctx, domain.RecalculateRequest{BookingID: b.ID, MeterEndReading: 100, ActualEndTime: pickupAt.Add(time.Hour)})

	if !errors.Is(err, domain.ErrOverpaymentRejected) {
		t.Fatalf("expected ErrOverpaymentRejected, got %v", err)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)

	cancelled, err := f.svc.CancelBooking(ctx, domain.CancelRequest{BookingID: b.ID, Reason: "customer no-show"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled || cancelled.CancelReason != "customer no-show" {
		t.Errorf("unexpected cancelled booking %+v", cancelled)
	}

	notes := "refund handled offline"
	edited, err := f.svc.EditDetails(ctx, domain.EditDetailsRequest{BookingID: b.ID, Notes: &notes})
	if err != nil {
		t.Fatalf("expected notes edit on cancelled booking, got %v", err)
	}
	if edited.Notes != notes {
		t.Errorf("expected notes %q, got %q", notes, edited.Notes)
	}

	window := domain.TimeWindow{Start: pickupAt, End: pickupAt.Add(time.Hour)}
	if _, err := f.svc.EditDetails(ctx, domain.EditDetailsRequest{BookingID: b.ID, Window: &window}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("expected window edit on cancelled booking to fail, got %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: 100, Mode: domain.PaymentModeCash}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("expected payment on cancelled booking to fail, got %v", err)
	}
	if _, err := f.svc.BeginOngoing(ctx, domain.BeginOngoingRequest{BookingID: b.ID}); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("expected begin on cancelled booking to fail, got %v", err)
	}
}

func TestCancelBooking_OngoingRejected(t *testing.T) {
	f := newFixture(t)
	b := f.ongoing(t)

	_, err := f.svc.CancelBooking(context.Background(), domain.CancelRequest{BookingID: b.ID})

	if !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestEditDetails_RepricesProvisionalBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)

	window := domain.TimeWindow{Start: pickupAt, End: pickupAt.Add(6 * time.Hour)}
	edited, err := f.svc.EditDetails(ctx, domain.EditDetailsRequest{BookingID: b.ID, Window: &window})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	// 6h * 100 = 600 + 108 tax
	if edited.Billing.Total != domain.NewMoney(708, 0) || edited.Billing.IsFinal {
		t.Errorf("expected provisional 708.00, got %+v", edited.Billing)
	}
}

func TestEditDetails_ShorterWindowBelowPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)
	if _, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.NewMoney(400, 0), Mode: domain.PaymentModeApp}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	window := domain.TimeWindow{Start: pickupAt, End: pickupAt.Add(time.Hour)}
	_, err := f.svc.EditDetails(ctx, domain.EditDetailsRequest{BookingID: b.ID, Window: &window})

	if !errors.Is(err, domain.ErrOverpaymentRejected) {
		t.Fatalf("expected ErrOverpaymentRejected, got %v", err)
	}
	if got := f.stored(t, b.ID).ScheduledWindow.End; !got.Equal(pickupAt.Add(4 * time.Hour)) {
		t.Errorf("expected window unchanged, got end %v", got)
	}
}

func TestRecordPayment_ReferenceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)
	req := domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.NewMoney(100, 0), Mode: domain.PaymentModeLink, Reference: "pi_123"}

	first, err := f.svc.RecordPayment(ctx, req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.svc.RecordPayment(ctx, req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected the same entry, got %s and %s", first.ID, second.ID)
	}
	if n := len(f.stored(t, b.ID).Payments); n != 1 {
		t.Errorf("expected 1 ledger entry, got %d", n)
	}
}

func TestGetBooking_ReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)

	reads := 0
	f.cache.GetFunc = func(ctx context.Context, key string) (string, error) {
		reads++
		return "", ports.ErrCacheMiss
	}

	got, err := f.svc.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != b.ID || reads != 1 {
		t.Errorf("expected cache miss then repository hit, reads=%d", reads)
	}

	if _, err := f.svc.GetBooking(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBooking_CacheFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	b := f.create(t)
	f.cache.GetFunc = func(ctx context.Context, key string) (string, error) {
		return "", errors.New("redis down")
	}
	f.cache.SetFunc = func(ctx context.Context, key, value string, ttl time.Duration) error {
		return errors.New("redis down")
	}

	got, err := f.svc.GetBooking(context.Background(), b.ID)

	if err != nil || got.ID != b.ID {
		t.Fatalf("expected fallback read, got %v %v", got, err)
	}
}

func TestMutation_LockTimeoutIsBusy(t *testing.T) {
	repo := &mocks.MockBookingRepository{}
	locker := &mocks.MockLocker{
		AcquireFunc: func(ctx context.Context, key string) (ports.Lock, error) {
			return nil, domain.ErrBusy
		},
	}
	svc := NewService(repo, locker, nil, &mocks.MockVehicleCatalog{}, &mocks.MockCustomerDirectory{}, nil, newTestLogger())

	_, err := svc.VerifyPickup(context.Background(), "booking-1", "1234")

	if !errors.Is(err, domain.ErrBusy) || !domain.Retryable(err) {
		t.Fatalf("expected retryable ErrBusy, got %v", err)
	}
	if be, _ := domain.AsBookingError(err); be == nil || be.BookingID != "booking-1" {
		t.Errorf("expected booking id on error, got %+v", be)
	}
}

func TestMutation_VersionConflictIsBusy(t *testing.T) {
	repo := &mocks.MockBookingRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Booking, error) {
			return &domain.Booking{
				ID:     id,
				Status: domain.BookingStatusScheduled,
				Verification: map[domain.Checkpoint]*domain.VerificationRecord{
					domain.CheckpointPickup: {Code: "1234"},
				},
			}, nil
		},
		SaveFunc: func(ctx context.Context, b *domain.Booking) error {
			return ports.ErrVersionConflict
		},
	}
	locker := &mocks.MockLocker{}
	svc := NewService(repo, locker, nil, &mocks.MockVehicleCatalog{}, &mocks.MockCustomerDirectory{}, nil, newTestLogger())

	_, err := svc.VerifyPickup(context.Background(), "booking-1", "1234")

	if !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(locker.Released) != 1 {
		t.Errorf("expected lock to be released, got %v", locker.Released)
	}
}

func TestMutation_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CompleteBooking(context.Background(), "missing")

	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestPaymentLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t)
	if _, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.NewMoney(72, 0), Mode: domain.PaymentModeCash}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	var gotAmount domain.Money
	var gotMeta map[string]string
	f.gateway.CreatePaymentIntentFunc = func(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (string, string, error) {
		gotAmount = amount
		gotMeta = metadata
		return "pi_1", "secret_1", nil
	}

	link, err := f.svc.RequestPaymentLink(ctx, b.ID)
	if err != nil {
		t.Fatalf("payment link: %v", err)
	}
	if gotAmount != domain.NewMoney(400, 0) || link.Amount != gotAmount {
		t.Errorf("expected link for balance 400.00, got %s", gotAmount)
	}
	if gotMeta["booking_id"] != b.ID {
		t.Errorf("expected booking_id metadata, got %v", gotMeta)
	}
	if link.Currency != "inr" {
		t.Errorf("expected currency inr, got %s", link.Currency)
	}

	if _, err := f.svc.RecordPayment(ctx, domain.RecordPaymentRequest{BookingID: b.ID, Amount: domain.NewMoney(400, 0), Mode: domain.PaymentModeLink, Reference: "pi_1"}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := f.svc.RequestPaymentLink(ctx, b.ID); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Errorf("expected ErrPreconditionFailed for zero balance, got %v", err)
	}
}
