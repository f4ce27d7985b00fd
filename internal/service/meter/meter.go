package meter

import (
	"time"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// RecordMeter stores an odometer reading for a checkpoint. On error the
// booking is left untouched.
func RecordMeter(b *domain.Booking, cp domain.Checkpoint, reading int64, at time.Time) error {
	if reading < 0 {
		return domain.NewBookingError(domain.ErrInvalidReading, b, "reading must not be negative").WithValue("reading", reading)
	}

	switch cp {
	case domain.CheckpointPickup:
		b.Usage.MeterStart = &reading
		b.Usage.MeterStartAt = &at
	case domain.CheckpointDropoff:
		if b.Usage.MeterStart == nil {
			return domain.NewBookingError(domain.ErrPreconditionFailed, b, "no pickup reading recorded")
		}
		if reading < *b.Usage.MeterStart {
			return domain.NewBookingError(domain.ErrInvalidReading, b, "drop-off reading is below the pickup reading").
				WithValue("meter_end_reading", reading)
		}
		b.Usage.MeterEnd = &reading
		b.Usage.MeterEndAt = &at
	default:
		return domain.InvalidInput("checkpoint", cp, "unknown checkpoint")
	}
	return nil
}

// ElapsedUsage derives distance and duration for billing.
// Distance is zero until both readings exist. Duration uses the actual
// window once it is closed and the scheduled window before that.
func ElapsedUsage(b *domain.Booking) domain.ElapsedUsage {
	var u domain.ElapsedUsage

	if b.Usage.MeterStart != nil && b.Usage.MeterEnd != nil {
		u.Distance = *b.Usage.MeterEnd - *b.Usage.MeterStart
	}

	if b.ActualWindow.Start != nil && b.ActualWindow.End != nil {
		u.Duration = domain.TimeWindow{Start: *b.ActualWindow.Start, End: *b.ActualWindow.End}.Duration()
	} else {
		u.Duration = b.ScheduledWindow.Duration()
	}
	return u
}
