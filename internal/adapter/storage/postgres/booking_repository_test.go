package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

func newMockRepository(t *testing.T) (*BookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewBookingRepository(db, zap.NewNop()), mock
}

func sampleBooking() *domain.Booking {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Booking{
		ID:              "bk-1",
		VehicleID:       "vehicle-1",
		CustomerID:      "customer-1",
		SellerID:        "seller-1",
		Status:          domain.BookingStatusScheduled,
		ScheduledWindow: domain.TimeWindow{Start: now, End: now.Add(4 * time.Hour)},
		Verification: map[domain.Checkpoint]*domain.VerificationRecord{
			domain.CheckpointPickup: {Code: "4821", IssuedAt: now},
		},
		Payments:  []domain.PaymentEntry{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestBookingRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(`INSERT INTO "bookings"`).WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), sampleBooking())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Save(t *testing.T) {
	repo, mock := newMockRepository(t)
	b := sampleBooking()
	mock.ExpectExec(`UPDATE "bookings" SET .* WHERE .*version = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), b)

	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_SaveVersionConflict(t *testing.T) {
	repo, mock := newMockRepository(t)
	b := sampleBooking()
	mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), b)

	assert.ErrorIs(t, err, ports.ErrVersionConflict)
	assert.Equal(t, int64(1), b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_FindByIDMissing(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	b, err := repo.FindByID(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBookingRepository_FindByIDDecodesVerification(t *testing.T) {
	repo, mock := newMockRepository(t)
	rows := sqlmock.NewRows([]string{"id", "status", "version", "verification", "billing", "payments"}).
		AddRow("bk-1", "Ongoing", 3,
			`{"pickup":{"code":"4821","verified":true,"attempts":2,"issued_at":"2026-03-01T10:00:00Z"}}`,
			`{"time_units":3,"distance":40,"subtotal":500.00,"tax":90.00,"total":590.00,"is_final":true}`,
			`[{"id":"p1","amount":100.50,"mode":"cash","collected_at":"2026-03-01T12:00:00Z"}]`,
		)
	mock.ExpectQuery(`SELECT \* FROM "bookings"`).WillReturnRows(rows)

	b, err := repo.FindByID(context.Background(), "bk-1")

	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, domain.BookingStatusOngoing, b.Status)
	assert.Equal(t, int64(3), b.Version)
	rec := b.Record(domain.CheckpointPickup)
	require.NotNil(t, rec)
	assert.Equal(t, "4821", rec.Code)
	assert.True(t, rec.Verified)
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, domain.NewMoney(590, 0), b.Billing.Total)
	assert.Equal(t, domain.NewMoney(100, 50), b.AmountPaid())
}

func TestBookingRepository_RoundTripRecord(t *testing.T) {
	b := sampleBooking()
	b.Verification[domain.CheckpointPickup].Attempts = 2

	got := toRecord(b).toDomain()

	assert.Equal(t, "4821", got.Record(domain.CheckpointPickup).Code)
	assert.Equal(t, 2, got.Record(domain.CheckpointPickup).Attempts)
	assert.Equal(t, b.ScheduledWindow, got.ScheduledWindow)
	assert.NotNil(t, got.Payments)
}

