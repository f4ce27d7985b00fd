package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
	"github.com/seu-repo/handover-engine/internal/service/invoice"
)

// BookingHandler serves the booking REST API.
type BookingHandler struct {
	service  ports.BookingService
	invoices ports.InvoiceRenderer
	log      *zap.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service ports.BookingService, invoices ports.InvoiceRenderer, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:  service,
		invoices: invoices,
		log:      log,
	}
}

// RegisterRoutes mounts the booking API on router (usually /api/v1).
func (h *BookingHandler) RegisterRoutes(router fiber.Router) {
	b := router.Group("/bookings")
	b.Post("/", h.Create)
	b.Get("/:id", h.Get)
	b.Put("/:id", h.Edit)
	b.Post("/:id/pickup/verify", h.VerifyPickup)
	b.Post("/:id/start", h.Start)
	b.Post("/:id/dropoff/verify", h.VerifyDropoff)
	b.Post("/:id/recalculate", h.Recalculate)
	b.Post("/:id/complete", h.Complete)
	b.Post("/:id/cancel", h.Cancel)
	b.Post("/:id/payments", h.RecordPayment)
	b.Post("/:id/payment-link", h.PaymentLink)
	b.Get("/:id/invoice.pdf", h.Invoice)
}

// parseBody decodes an optional JSON body. Decoding failures, including
// amounts with more than two decimals, are client errors.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return domain.InvalidInput("body", nil, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// Create creates a new booking
func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	b, err := h.service.CreateBooking(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

// Get returns a booking by ID
func (h *BookingHandler) Get(c *fiber.Ctx) error {
	b, err := h.service.GetBooking(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(b)
}

type verifyCodeBody struct {
	Code string `json:"code"`
}

type verifyCodeResponse struct {
	Verified        bool       `json:"verified"`
	AlreadyVerified bool       `json:"already_verified"`
	Attempts        int        `json:"attempts"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
}

func toVerifyResponse(res *domain.VerificationResult) verifyCodeResponse {
	return verifyCodeResponse{
		Verified:        res.Verified,
		AlreadyVerified: res.AlreadyVerified,
		Attempts:        res.Attempts,
		VerifiedAt:      res.VerifiedAt,
	}
}

// VerifyPickup checks the pickup code
func (h *BookingHandler) VerifyPickup(c *fiber.Ctx) error {
	var body verifyCodeBody
	if err := parseBody(c, &body); err != nil {
		return err
	}
	res, err := h.service.VerifyPickup(c.UserContext(), c.Params("id"), body.Code)
	if err != nil {
		return err
	}
	return c.JSON(toVerifyResponse(res))
}

// VerifyDropoff checks the drop-off code
func (h *BookingHandler) VerifyDropoff(c *fiber.Ctx) error {
	var body verifyCodeBody
	if err := parseBody(c, &body); err != nil {
		return err
	}
	res, err := h.service.VerifyDropoff(c.UserContext(), c.Params("id"), body.Code)
	if err != nil {
		return err
	}
	return c.JSON(toVerifyResponse(res))
}

// Start records the start reading and moves the booking to Ongoing
func (h *BookingHandler) Start(c *fiber.Ctx) error {
	var req domain.BeginOngoingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.BookingID = c.Params("id")

	b, err := h.service.BeginOngoing(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

// Recalculate records the drop-off reading and returns the final bill
func (h *BookingHandler) Recalculate(c *fiber.Ctx) error {
	var req domain.RecalculateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.BookingID = c.Params("id")

	snap, err := h.service.RecalculateOnDrop(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// Complete completes an ongoing booking
func (h *BookingHandler) Complete(c *fiber.Ctx) error {
	b, err := h.service.CompleteBooking(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(b)
}

// Cancel cancels a scheduled booking
func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	var req domain.CancelRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.BookingID = c.Params("id")

	b, err := h.service.CancelBooking(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

// RecordPayment records a collected payment
func (h *BookingHandler) RecordPayment(c *fiber.Ctx) error {
	var req domain.RecordPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.BookingID = c.Params("id")

	entry, err := h.service.RecordPayment(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// PaymentLink opens a hosted payment for the balance due
func (h *BookingHandler) PaymentLink(c *fiber.Ctx) error {
	link, err := h.service.RequestPaymentLink(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

// Edit updates the scheduled window or notes
func (h *BookingHandler) Edit(c *fiber.Ctx) error {
	var req domain.EditDetailsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.BookingID = c.Params("id")

	b, err := h.service.EditDetails(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

// Invoice renders the PDF invoice
func (h *BookingHandler) Invoice(c *fiber.Ctx) error {
	b, err := h.service.GetBooking(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	pdf, err := h.invoices.Render(b)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, invoice.Filename(b)))
	return c.Send(pdf)
}
