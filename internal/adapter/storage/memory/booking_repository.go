package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

// BookingRepository keeps bookings in process memory. It is used for local
// development and tests; every read and write copies the aggregate.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[string]*domain.Booking)}
}

var _ ports.BookingRepository = (*BookingRepository)(nil)

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[b.ID]; exists {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	b.Version = 1
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	return b.Clone(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[b.ID]
	if !ok {
		return fmt.Errorf("booking %s does not exist", b.ID)
	}
	if stored.Version != b.Version {
		return ports.ErrVersionConflict
	}
	b.Version++
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) Ping(ctx context.Context) error {
	return nil
}
