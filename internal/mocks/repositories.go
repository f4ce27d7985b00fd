package mocks

import (
	"context"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// MockBookingRepository is a mock implementation of BookingRepository
type MockBookingRepository struct {
	CreateFunc   func(ctx context.Context, b *domain.Booking) error
	FindByIDFunc func(ctx context.Context, id string) (*domain.Booking, error)
	SaveFunc     func(ctx context.Context, b *domain.Booking) error
	PingFunc     func(ctx context.Context) error
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, b)
	}
	return nil
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockBookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, b)
	}
	return nil
}

func (m *MockBookingRepository) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}
