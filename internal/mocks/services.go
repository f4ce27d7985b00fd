package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

// MockLocker is a mock implementation of Locker
type MockLocker struct {
	AcquireFunc func(ctx context.Context, key string) (ports.Lock, error)

	mu       sync.Mutex
	Acquired []string
	Released []string
}

func (m *MockLocker) Acquire(ctx context.Context, key string) (ports.Lock, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, key)
	}
	m.mu.Lock()
	m.Acquired = append(m.Acquired, key)
	m.mu.Unlock()
	return &mockLock{owner: m, key: key}, nil
}

type mockLock struct {
	owner *MockLocker
	key   string
}

func (l *mockLock) Release(ctx context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	l.owner.Released = append(l.owner.Released, l.key)
	return nil
}

// MockNotifier records every event it receives
type MockNotifier struct {
	mu     sync.Mutex
	Events []domain.BookingEvent
}

func (m *MockNotifier) Notify(ctx context.Context, event domain.BookingEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// EventTypes returns the recorded event types in order.
func (m *MockNotifier) EventTypes() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]domain.EventType, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}

// MockVehicleCatalog is a mock implementation of VehicleCatalog
type MockVehicleCatalog struct {
	GetVehicleFunc func(ctx context.Context, id string) (*domain.Vehicle, error)
}

func (m *MockVehicleCatalog) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	if m.GetVehicleFunc != nil {
		return m.GetVehicleFunc(ctx, id)
	}
	return nil, nil
}

// MockCustomerDirectory is a mock implementation of CustomerDirectory
type MockCustomerDirectory struct {
	GetCustomerFunc func(ctx context.Context, id string) (*domain.Customer, error)
}

func (m *MockCustomerDirectory) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	if m.GetCustomerFunc != nil {
		return m.GetCustomerFunc(ctx, id)
	}
	return &domain.Customer{ID: id}, nil
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	CreatePaymentIntentFunc func(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (string, string, error)
}

func (m *MockPaymentGateway) CreatePaymentIntent(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (string, string, error) {
	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, amount, currency, metadata)
	}
	return "pi_mock", "pi_mock_secret", nil
}

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	CreateBookingFunc      func(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error)
	GetBookingFunc         func(ctx context.Context, id string) (*domain.Booking, error)
	VerifyPickupFunc       func(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error)
	BeginOngoingFunc       func(ctx context.Context, req domain.BeginOngoingRequest) (*domain.Booking, error)
	VerifyDropoffFunc      func(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error)
	RecalculateOnDropFunc  func(ctx context.Context, req domain.RecalculateRequest) (*domain.BillingSnapshot, error)
	CompleteBookingFunc    func(ctx context.Context, bookingID string) (*domain.Booking, error)
	CancelBookingFunc      func(ctx context.Context, req domain.CancelRequest) (*domain.Booking, error)
	RecordPaymentFunc      func(ctx context.Context, req domain.RecordPaymentRequest) (*domain.PaymentEntry, error)
	EditDetailsFunc        func(ctx context.Context, req domain.EditDetailsRequest) (*domain.Booking, error)
	RequestPaymentLinkFunc func(ctx context.Context, bookingID string) (*domain.PaymentLink, error)
}

var _ ports.BookingService = (*MockBookingService)(nil)

func (m *MockBookingService) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	if m.CreateBookingFunc != nil {
		return m.CreateBookingFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockBookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if m.GetBookingFunc != nil {
		return m.GetBookingFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockBookingService) VerifyPickup(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error) {
	if m.VerifyPickupFunc != nil {
		return m.VerifyPickupFunc(ctx, bookingID, code)
	}
	return nil, nil
}

func (m *MockBookingService) BeginOngoing(ctx context.Context, req domain.BeginOngoingRequest) (*domain.Booking, error) {
	if m.BeginOngoingFunc != nil {
		return m.BeginOngoingFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockBookingService) VerifyDropoff(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error) {
	if m.VerifyDropoffFunc != nil {
		return m.VerifyDropoffFunc(ctx, bookingID, code)
	}
	return nil, nil
}

func (m *MockBookingService) RecalculateOnDrop(ctx context.Context, req domain.RecalculateRequest) (*domain.BillingSnapshot, error) {
	if m.RecalculateOnDropFunc != nil {
		return m.RecalculateOnDropFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockBookingService) CompleteBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if m.CompleteBookingFunc != nil {
		return m.CompleteBookingFunc(ctx, bookingID)
	}
	return nil, nil
}

func (m *MockBookingService) CancelBooking(ctx context.Context, req domain.CancelRequest) (*domain.Booking, error) {
	if m.CancelBookingFunc != nil {
		return m.CancelBookingFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockBookingService) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (*domain.PaymentEntry, error) {
	if m.RecordPaymentFunc != nil {
		return m.RecordPaymentFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockBookingService) EditDetails(ctx context.Context, req domain.EditDetailsRequest) (*domain.Booking, error) {
	if m.EditDetailsFunc != nil {
		return m.EditDetailsFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockBookingService) RequestPaymentLink(ctx context.Context, bookingID string) (*domain.PaymentLink, error) {
	if m.RequestPaymentLinkFunc != nil {
		return m.RequestPaymentLinkFunc(ctx, bookingID)
	}
	return nil, nil
}
