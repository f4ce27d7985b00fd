package ports

import (
	"context"
	"errors"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// ErrVersionConflict is returned by Save when the stored version moved underneath the caller.
var ErrVersionConflict = errors.New("booking version conflict")

// BookingRepository persists one record per booking with payments and
// verification records embedded.
type BookingRepository interface {
	// Create inserts a new booking at version 1.
	Create(ctx context.Context, b *domain.Booking) error
	// FindByID returns nil, nil when the booking does not exist.
	FindByID(ctx context.Context, id string) (*domain.Booking, error)
	// Save writes b if the stored version equals b.Version and bumps b.Version.
	Save(ctx context.Context, b *domain.Booking) error
	Ping(ctx context.Context) error
}
