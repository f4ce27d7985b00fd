package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

// bookingRecord is the persisted row. Nested value objects are stored as
// JSON columns; the aggregate is always read and written whole.
type bookingRecord struct {
	ID             string                                `gorm:"primaryKey;type:varchar(64)"`
	VehicleID      string                                `gorm:"index;not null"`
	CustomerID     string                                `gorm:"index;not null"`
	SellerID       string                                `gorm:"index;not null"`
	Status         string                                `gorm:"index;type:varchar(16);not null"`
	ScheduledStart time.Time                             `gorm:"not null"`
	ScheduledEnd   time.Time                             `gorm:"not null"`
	ActualWindow   domain.ActualWindow                   `gorm:"serializer:json"`
	RatePlan       domain.RatePlan                       `gorm:"serializer:json"`
	Usage          domain.Usage                          `gorm:"serializer:json"`
	Billing        domain.BillingSnapshot                `gorm:"serializer:json"`
	Verification   map[domain.Checkpoint]verificationRow `gorm:"serializer:json"`
	Payments       []domain.PaymentEntry                 `gorm:"serializer:json"`
	Notes          string
	CancelReason   string
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	Version        int64 `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (bookingRecord) TableName() string {
	return "bookings"
}

// verificationRow keeps the code, which the API representation hides.
type verificationRow struct {
	Code       string     `json:"code"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Attempts   int        `json:"attempts"`
	IssuedAt   time.Time  `json:"issued_at"`
}

type BookingRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewBookingRepository(db *gorm.DB, log *zap.Logger) *BookingRepository {
	return &BookingRepository{
		db:  db,
		log: log,
	}
}

var _ ports.BookingRepository = (*BookingRepository)(nil)

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	rec := toRecord(b)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert booking %s: %w", b.ID, err)
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	var rec bookingRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

// Save writes b if the stored version still equals b.Version, then bumps it.
func (r *BookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	expected := b.Version
	rec := toRecord(b)
	rec.Version = expected + 1

	res := r.db.WithContext(ctx).
		Model(rec).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(rec)
	if res.Error != nil {
		return fmt.Errorf("update booking %s: %w", b.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		r.log.Debug("Booking version conflict",
			zap.String("booking_id", b.ID),
			zap.Int64("expected_version", expected),
		)
		return ports.ErrVersionConflict
	}

	b.Version = rec.Version
	return nil
}

func (r *BookingRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toRecord(b *domain.Booking) *bookingRecord {
	rec := &bookingRecord{
		ID:             b.ID,
		VehicleID:      b.VehicleID,
		CustomerID:     b.CustomerID,
		SellerID:       b.SellerID,
		Status:         string(b.Status),
		ScheduledStart: b.ScheduledWindow.Start,
		ScheduledEnd:   b.ScheduledWindow.End,
		ActualWindow:   b.ActualWindow,
		RatePlan:       b.RatePlan,
		Usage:          b.Usage,
		Billing:        b.Billing,
		Verification:   make(map[domain.Checkpoint]verificationRow, len(b.Verification)),
		Payments:       b.Payments,
		Notes:          b.Notes,
		CancelReason:   b.CancelReason,
		CompletedAt:    b.CompletedAt,
		CancelledAt:    b.CancelledAt,
		Version:        b.Version,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	for cp, v := range b.Verification {
		if v == nil {
			continue
		}
		rec.Verification[cp] = verificationRow{
			Code:       v.Code,
			Verified:   v.Verified,
			VerifiedAt: v.VerifiedAt,
			Attempts:   v.Attempts,
			IssuedAt:   v.IssuedAt,
		}
	}
	if rec.Payments == nil {
		rec.Payments = []domain.PaymentEntry{}
	}
	return rec
}

func (rec *bookingRecord) toDomain() *domain.Booking {
	b := &domain.Booking{
		ID:              rec.ID,
		VehicleID:       rec.VehicleID,
		CustomerID:      rec.CustomerID,
		SellerID:        rec.SellerID,
		Status:          domain.BookingStatus(rec.Status),
		ScheduledWindow: domain.TimeWindow{Start: rec.ScheduledStart.UTC(), End: rec.ScheduledEnd.UTC()},
		ActualWindow:    rec.ActualWindow,
		RatePlan:        rec.RatePlan,
		Usage:           rec.Usage,
		Billing:         rec.Billing,
		Verification:    make(map[domain.Checkpoint]*domain.VerificationRecord, len(rec.Verification)),
		Payments:        rec.Payments,
		Notes:           rec.Notes,
		CancelReason:    rec.CancelReason,
		CompletedAt:     rec.CompletedAt,
		CancelledAt:     rec.CancelledAt,
		Version:         rec.Version,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
	for cp, v := range rec.Verification {
		b.Verification[cp] = &domain.VerificationRecord{
			Code:       v.Code,
			Verified:   v.Verified,
			VerifiedAt: v.VerifiedAt,
			Attempts:   v.Attempts,
			IssuedAt:   v.IssuedAt,
		}
	}
	if b.Payments == nil {
		b.Payments = []domain.PaymentEntry{}
	}
	return b
}
