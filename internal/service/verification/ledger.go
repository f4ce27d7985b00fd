package verification

import (
	"crypto/subtle"
	"time"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// Ledger manages the one-time codes of a booking's checkpoints.
// It mutates the aggregate in place; the caller holds the booking lock.
type Ledger struct {
	now func() time.Time
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Issue creates the record for cp if absent and returns its code.
// An existing record is kept so a retried transition does not rotate the code.
func (l *Ledger) Issue(b *domain.Booking, cp domain.Checkpoint) (string, error) {
	if rec := b.Record(cp); rec != nil {
		return rec.Code, nil
	}
	rec, err := domain.NewVerificationRecord(l.now().UTC())
	if err != nil {
		return "", err
	}
	if b.Verification == nil {
		b.Verification = make(map[domain.Checkpoint]*domain.VerificationRecord)
	}
	b.Verification[cp] = rec
	return rec.Code, nil
}

// Verify checks code against the checkpoint record.
//
// changed reports whether the booking must be persisted: true on first
// successful verification and on a wrong code against an unverified record
// (the attempt counter moved), false otherwise.
func (l *Ledger) Verify(b *domain.Booking, cp domain.Checkpoint, code string) (result *domain.VerificationResult, changed bool, err error) {
	rec := b.Record(cp)
	if rec == nil {
		return nil, false, domain.NewBookingError(domain.ErrPreconditionFailed, b, "no code issued for checkpoint").WithValue("checkpoint", cp)
	}

	match := subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1

	if rec.Verified {
		if !match {
			return nil, false, domain.NewBookingError(domain.ErrMismatchAfterVerified, b, "checkpoint already verified with a different code").WithValue("checkpoint", cp)
		}
		return resultOf(cp, rec, true), false, nil
	}

	rec.Attempts++
	if !match {
		return nil, true, domain.NewBookingError(domain.ErrInvalidCode, b, "code does not match").WithValue("attempts", rec.Attempts)
	}

	now := l.now().UTC()
	rec.Verified = true
	rec.VerifiedAt = &now
	return resultOf(cp, rec, false), true, nil
}

func resultOf(cp domain.Checkpoint, rec *domain.VerificationRecord, already bool) *domain.VerificationResult {
	return &domain.VerificationResult{
		Checkpoint:      cp,
		Verified:        true,
		AlreadyVerified: already,
		Attempts:        rec.Attempts,
		VerifiedAt:      rec.VerifiedAt,
	}
}
