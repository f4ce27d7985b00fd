package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/adapter/external/payment"
	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

// WebhookParser verifies and decodes a payment provider callback.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payment.SettledPayment, error)
}

// StripeWebhookHandler records settled payment links as `link` payments.
type StripeWebhookHandler struct {
	parser  WebhookParser
	service ports.BookingService
	log     *zap.Logger
}

func NewStripeWebhookHandler(parser WebhookParser, service ports.BookingService, log *zap.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		parser:  parser,
		service: service,
		log:     log,
	}
}

func (h *StripeWebhookHandler) Handle(c *fiber.Ctx) error {
	settled, err := h.parser.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		h.log.Warn("Rejected Stripe webhook", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid webhook"})
	}
	if settled == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	entry, err := h.service.RecordPayment(c.UserContext(), domain.RecordPaymentRequest{
		BookingID: settled.BookingID,
		Amount:    settled.Amount,
		Mode:      domain.PaymentModeLink,
		Reference: settled.IntentID,
		Note:      "stripe payment link",
	})
	switch {
	case err == nil:
		h.log.Info("Payment link settled",
			zap.String("booking_id", settled.BookingID),
			zap.String("payment_intent_id", settled.IntentID),
			zap.String("entry_id", entry.ID),
		)
		return c.JSON(fiber.Map{"received": true})
	case errors.Is(err, domain.ErrBusy):
		// Stripe retries non-2xx deliveries.
		return err
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrPreconditionFailed),
		errors.Is(err, domain.ErrOverpaymentRejected),
		errors.Is(err, domain.ErrInvalidInput):
		h.log.Error("Settled payment could not be recorded; manual reconciliation required",
			zap.String("booking_id", settled.BookingID),
			zap.String("payment_intent_id", settled.IntentID),
			zap.String("amount", settled.Amount.String()),
			zap.Error(err),
		)
		return c.JSON(fiber.Map{"received": true, "recorded": false})
	default:
		return err
	}
}
