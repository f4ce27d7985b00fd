package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("stripe: invalid webhook signature")

// StripeGateway opens PaymentIntents for outstanding balances and decodes
// the webhooks that report them settled.
type StripeGateway struct {
	intents       *paymentintent.Client
	webhookSecret string
	log           *zap.Logger
}

// NewStripeGateway uses the default Stripe API backend.
func NewStripeGateway(secretKey, webhookSecret string, log *zap.Logger) *StripeGateway {
	return NewStripeGatewayWithBackend(stripe.GetBackend(stripe.APIBackend), secretKey, webhookSecret, log)
}

func NewStripeGatewayWithBackend(backend stripe.Backend, secretKey, webhookSecret string, log *zap.Logger) *StripeGateway {
	return &StripeGateway{
		intents:       &paymentintent.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
		log:           log,
	}
}

var _ ports.PaymentGateway = (*StripeGateway)(nil)

func (s *StripeGateway) CreatePaymentIntent(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (string, string, error) {
	if amount <= 0 {
		return "", "", errors.New("invalid amount")
	}

	s.log.Info("Creating payment intent",
		zap.String("amount", amount.String()),
		zap.String("currency", currency),
		zap.String("booking_id", metadata["booking_id"]),
	)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := s.intents.New(params)
	if err != nil {
		s.log.Error("Failed to create payment intent", zap.Error(err))
		return "", "", fmt.Errorf("stripe: create payment intent: %w", err)
	}

	s.log.Info("Payment intent created",
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", string(pi.Status)),
	)

	return pi.ID, pi.ClientSecret, nil
}

// SettledPayment is a succeeded PaymentIntent tied to a booking.
type SettledPayment struct {
	IntentID  string
	BookingID string
	Amount    domain.Money
}

// ParseWebhook verifies the signature and returns the settled payment for
// payment_intent.succeeded events. Other event types return nil, nil.
func (s *StripeGateway) ParseWebhook(payload []byte, signature string) (*SettledPayment, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		s.log.Debug("Ignoring Stripe event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}

	bookingID := pi.Metadata["booking_id"]
	if bookingID == "" {
		s.log.Warn("Payment intent without booking metadata", zap.String("payment_intent_id", pi.ID))
		return nil, nil
	}

	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}

	return &SettledPayment{
		IntentID:  pi.ID,
		BookingID: bookingID,
		Amount:    domain.Money(amount),
	}, nil
}
