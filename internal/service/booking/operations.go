package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/observability/telemetry"
	"github.com/seu-repo/handover-engine/internal/service/billing"
	"github.com/seu-repo/handover-engine/internal/service/meter"
	"github.com/seu-repo/handover-engine/internal/service/payment"
)

// CreateBooking prices a new scheduled booking from the vehicle rate plan
// and issues its pickup code.
func (s *Service) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create")
	var err error
	defer func() {
		s.observe(span, "create", err)
		span.End()
	}()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		err = fmt.Errorf("vehicle lookup failed: %w", err)
		return nil, err
	}
	if vehicle == nil {
		err = &domain.BookingError{Kind: domain.ErrNotFound, Field: "vehicle_id", Value: req.VehicleID, Message: "vehicle not found"}
		return nil, err
	}
	if !vehicle.Active {
		err = &domain.BookingError{Kind: domain.ErrPreconditionFailed, Field: "vehicle_id", Value: req.VehicleID, Message: "vehicle is not available for rental"}
		return nil, err
	}
	if vehicle.SellerID != "" && vehicle.SellerID != req.SellerID {
		err = domain.InvalidInput("seller_id", req.SellerID, "vehicle belongs to another seller")
		return nil, err
	}

	customer, err := s.customers.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		err = fmt.Errorf("customer lookup failed: %w", err)
		return nil, err
	}
	if customer == nil {
		err = &domain.BookingError{Kind: domain.ErrNotFound, Field: "customer_id", Value: req.CustomerID, Message: "customer not found"}
		return nil, err
	}

	now := s.now().UTC()
	b := &domain.Booking{
		ID:              uuid.New().String(),
		VehicleID:       req.VehicleID,
		CustomerID:      req.CustomerID,
		SellerID:        req.SellerID,
		Status:          domain.BookingStatusScheduled,
		ScheduledWindow: domain.TimeWindow{Start: req.Window.Start.UTC(), End: req.Window.End.UTC()},
		RatePlan:        vehicle.RatePlan,
		Notes:           req.Notes,
		Payments:        []domain.PaymentEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	code, err := s.verifier.Issue(b, domain.CheckpointPickup)
	if err != nil {
		return nil, err
	}

	b.Billing, err = billing.Compute(b.RatePlan, meter.ElapsedUsage(b))
	if err != nil {
		return nil, err
	}

	if err = s.repo.Create(ctx, b); err != nil {
		err = fmt.Errorf("failed to create booking: %w", err)
		return nil, err
	}

	s.writeCache(ctx, b)
	telemetry.BookingTransitionsTotal.WithLabelValues(string(b.Status)).Inc()
	s.log.Info("Booking created",
		zap.String("booking_id", b.ID),
		zap.String("vehicle_id", b.VehicleID),
		zap.String("customer_id", b.CustomerID),
		zap.String("provisional_total", b.Billing.Total.String()),
	)
	s.publish(ctx, domain.EventBookingCreated, b, 0, code)

	return b, nil
}

// VerifyPickup checks the customer pickup code.
func (s *Service) VerifyPickup(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error) {
	return s.verify(ctx, bookingID, domain.CheckpointPickup, code)
}

// VerifyDropoff checks the drop-off code issued when the booking went ongoing.
func (s *Service) VerifyDropoff(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error) {
	return s.verify(ctx, bookingID, domain.CheckpointDropoff, code)
}

func (s *Service) verify(ctx context.Context, bookingID string, cp domain.Checkpoint, code string) (*domain.VerificationResult, error) {
	req := domain.VerifyCodeRequest{BookingID: bookingID, Checkpoint: cp, Code: code}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *domain.VerificationResult
	_, err := s.mutate(ctx, bookingID, "verify_"+string(cp), func(b *domain.Booking, ev *eventLog) (bool, error) {
		switch {
		case cp == domain.CheckpointPickup && b.Status != domain.BookingStatusScheduled && b.Status != domain.BookingStatusOngoing,
			cp == domain.CheckpointDropoff && b.Status != domain.BookingStatusOngoing:
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "checkpoint cannot be verified in this status").WithValue("checkpoint", cp)
		}

		res, changed, err := s.verifier.Verify(b, cp, code)
		telemetry.VerificationAttemptsTotal.WithLabelValues(string(cp), verificationOutcome(res, err)).Inc()
		result = res
		return changed, err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func verificationOutcome(res *domain.VerificationResult, err error) string {
	switch {
	case err != nil:
		return "rejected"
	case res.AlreadyVerified:
		return "already_verified"
	default:
		return "verified"
	}
}

// BeginOngoing records the start reading, issues the drop-off code and
// moves a verified scheduled booking to ongoing.
func (s *Service) BeginOngoing(ctx context.Context, req domain.BeginOngoingRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, req.BookingID, "begin_ongoing", func(b *domain.Booking, ev *eventLog) (bool, error) {
		if b.Status != domain.BookingStatusScheduled {
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "booking is not scheduled")
		}
		if !b.IsVerified(domain.CheckpointPickup) {
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "pickup code has not been verified")
		}

		now := s.now().UTC()
		if err := meter.RecordMeter(b, domain.CheckpointPickup, req.MeterStartReading, now); err != nil {
			return false, err
		}
		code, err := s.verifier.Issue(b, domain.CheckpointDropoff)
		if err != nil {
			return false, err
		}

		b.Status = domain.BookingStatusOngoing
		b.ActualWindow.Start = &now
		ev.raise(domain.EventBookingOngoing, 0, code)
		return true, nil
	})
}

// RecalculateOnDrop records the drop-off reading and replaces the
// provisional bill with the final one. A bill that is final with the
// drop-off verified is returned unchanged.
func (s *Service) RecalculateOnDrop(ctx context.Context, req domain.RecalculateRequest) (*domain.BillingSnapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b, err := s.mutate(ctx, req.BookingID, "recalculate", func(b *domain.Booking, ev *eventLog) (bool, error) {
		if b.Status != domain.BookingStatusOngoing {
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "booking is not ongoing")
		}
		// Drop-off handed over and bill finalized: the snapshot is frozen.
		if b.Billing.IsFinal && b.IsVerified(domain.CheckpointDropoff) {
			return false, nil
		}

		now := s.now().UTC()
		end := req.ActualEndTime.UTC()
		if req.ActualEndTime.IsZero() {
			end = now
		}
		if b.ActualWindow.Start != nil && end.Before(*b.ActualWindow.Start) {
			return false, domain.NewBookingError(domain.ErrInvalidReading, b, "drop-off time is before pickup").
				WithValue("actual_end_time", end.Format(time.RFC3339))
		}

		if err := meter.RecordMeter(b, domain.CheckpointDropoff, req.MeterEndReading, now); err != nil {
			return false, err
		}
		b.ActualWindow.End = &end

		snap, err := billing.Compute(b.RatePlan, meter.ElapsedUsage(b))
		if err != nil {
			return false, err
		}
		snap.IsFinal = true
		if err := payment.EnsureCovers(b, snap.Total); err != nil {
			return false, err
		}
		b.Billing = snap
		ev.raise(domain.EventBookingBilled, 0, "")
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	snap := b.Billing
	return &snap, nil
}

// CompleteBooking closes an ongoing booking once drop-off is verified and
// the bill is final.
func (s *Service) CompleteBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if err := domain.ValidateBookingID(bookingID); err != nil {
		return nil, err
	}

	return s.mutate(ctx, bookingID, "complete", func(b *domain.Booking, ev *eventLog) (bool, error) {
		switch {
		case b.Status != domain.BookingStatusOngoing:
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "booking is not ongoing")
		case !b.IsVerified(domain.CheckpointDropoff):
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "drop-off code has not been verified")
		case b.Usage.MeterEnd == nil:
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "drop-off reading has not been recorded")
		case !b.Billing.IsFinal:
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "bill has not been finalized")
		}

		now := s.now().UTC()
		if b.ActualWindow.End == nil {
			b.ActualWindow.End = &now
		}
		b.CompletedAt = &now
		b.Status = domain.BookingStatusCompleted
		ev.raise(domain.EventBookingCompleted, 0, "")
		return true, nil
	})
}

// CancelBooking cancels a booking that has not started.
func (s *Service) CancelBooking(ctx context.Context, req domain.CancelRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, req.BookingID, "cancel", func(b *domain.Booking, ev *eventLog) (bool, error) {
		if b.Status != domain.BookingStatusScheduled {
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "only scheduled bookings can be cancelled")
		}
		now := s.now().UTC()
		b.Status = domain.BookingStatusCancelled
		b.CancelReason = req.Reason
		b.CancelledAt = &now
		ev.raise(domain.EventBookingCancelled, 0, "")
		return true, nil
	})
}

// RecordPayment appends a payment to the ledger. A repeated reference
// returns the existing entry.
func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (*domain.PaymentEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		entry   domain.PaymentEntry
		created bool
	)
	b, err := s.mutate(ctx, req.BookingID, "record_payment", func(b *domain.Booking, ev *eventLog) (bool, error) {
		if b.Status != domain.BookingStatusScheduled && b.Status != domain.BookingStatusOngoing {
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "payments are closed for this booking")
		}
		e, isNew, err := payment.Append(b, req.Amount, req.Mode, req.Note, req.Reference, s.now().UTC())
		if err != nil {
			return false, err
		}
		entry = *e
		created = isNew
		if isNew {
			ev.raise(domain.EventPaymentRecorded, e.Amount, "")
		}
		return isNew, nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		telemetry.PaymentsCollectedTotal.WithLabelValues(string(entry.Mode)).Add(float64(entry.Amount))
		s.log.Info("Payment recorded",
			zap.String("booking_id", b.ID),
			zap.String("amount", entry.Amount.String()),
			zap.String("mode", string(entry.Mode)),
			zap.String("balance_due", b.BalanceDue().String()),
		)
	}
	return &entry, nil
}

// EditDetails changes the scheduled window or notes. A non-final bill is
// recomputed for the new window.
func (s *Service) EditDetails(ctx context.Context, req domain.EditDetailsRequest) (*domain.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, req.BookingID, "edit_details", func(b *domain.Booking, ev *eventLog) (bool, error) {
		switch b.Status {
		case domain.BookingStatusCompleted:
			return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "completed bookings cannot be edited")
		case domain.BookingStatusCancelled:
			if req.Window != nil {
				return false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "only notes can be changed on a cancelled booking")
			}
		}

		if req.Window != nil {
			b.ScheduledWindow = domain.TimeWindow{Start: req.Window.Start.UTC(), End: req.Window.End.UTC()}
			if !b.Billing.IsFinal {
				snap, err := billing.Compute(b.RatePlan, meter.ElapsedUsage(b))
				if err != nil {
					return false, err
				}
				if err := payment.EnsureCovers(b, snap.Total); err != nil {
					return false, err
				}
				b.Billing = snap
			}
		}
		if req.Notes != nil {
			b.Notes = *req.Notes
		}
		return true, nil
	})
}

// RequestPaymentLink opens a hosted payment for the outstanding balance.
// The resulting payment is recorded when the gateway webhook reports success.
func (s *Service) RequestPaymentLink(ctx context.Context, bookingID string) (*domain.PaymentLink, error) {
	if err := domain.ValidateBookingID(bookingID); err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, &domain.BookingError{Kind: domain.ErrPreconditionFailed, BookingID: bookingID, Message: "payment links are not enabled"}
	}

	b, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return nil, &domain.BookingError{Kind: domain.ErrNotFound, BookingID: bookingID, Message: "booking not found"}
	}
	if b.Status != domain.BookingStatusScheduled && b.Status != domain.BookingStatusOngoing {
		return nil, domain.NewBookingError(domain.ErrPreconditionFailed, b, "payments are closed for this booking")
	}
	balance := b.BalanceDue()
	if balance <= 0 {
		return nil, domain.NewBookingError(domain.ErrPreconditionFailed, b, "nothing left to pay").WithValue("balance_due", balance)
	}

	intentID, secret, err := s.gateway.CreatePaymentIntent(ctx, balance, s.currency, map[string]string{
		"booking_id":  b.ID,
		"customer_id": b.CustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.log.Info("Payment link created",
		zap.String("booking_id", b.ID),
		zap.String("intent_id", intentID),
		zap.String("amount", balance.String()),
	)

	return &domain.PaymentLink{
		BookingID:    b.ID,
		IntentID:     intentID,
		ClientSecret: secret,
		Amount:       balance,
		Currency:     s.currency,
	}, nil
}
