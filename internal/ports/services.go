package ports

import (
	"context"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// BookingService is the only entry point that mutates a booking.
type BookingService interface {
	CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	VerifyPickup(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error)
	BeginOngoing(ctx context.Context, req domain.BeginOngoingRequest) (*domain.Booking, error)
	VerifyDropoff(ctx context.Context, bookingID, code string) (*domain.VerificationResult, error)
	RecalculateOnDrop(ctx context.Context, req domain.RecalculateRequest) (*domain.BillingSnapshot, error)
	CompleteBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, req domain.CancelRequest) (*domain.Booking, error)
	RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (*domain.PaymentEntry, error)
	EditDetails(ctx context.Context, req domain.EditDetailsRequest) (*domain.Booking, error)
	RequestPaymentLink(ctx context.Context, bookingID string) (*domain.PaymentLink, error)
}

// InvoiceRenderer renders the final bill of a booking.
type InvoiceRenderer interface {
	Render(b *domain.Booking) ([]byte, error)
}

// Notifier receives committed booking events. Notify must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, event domain.BookingEvent)
}

// VehicleCatalog resolves a vehicle and its rate plan. Returns nil, nil when unknown.
type VehicleCatalog interface {
	GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error)
}

// CustomerDirectory resolves a renter. Returns nil, nil when unknown.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}

// PaymentGateway creates hosted payment requests.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (intentID, clientSecret string, err error)
}
