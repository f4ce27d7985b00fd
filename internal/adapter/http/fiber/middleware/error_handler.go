package middleware

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
)

// RetryAfterSeconds is advertised on Busy responses.
const RetryAfterSeconds = 1

// StatusFor maps an error returned by a handler to an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrPreconditionFailed),
		errors.Is(err, domain.ErrMismatchAfterVerified),
		errors.Is(err, domain.ErrOverpaymentRejected):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrInvalidReading):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBusy):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.Any("request_id", c.Locals("requestid")),
			)
			return c.Status(code).JSON(fiber.Map{
				"error": "internal error",
				"code":  "INTERNAL",
			})
		}

		body := fiber.Map{
			"error": err.Error(),
		}
		if be, ok := domain.AsBookingError(err); ok {
			body["code"] = domain.Code(err)
			body["error"] = be.Message
			if be.BookingID != "" {
				body["booking_id"] = be.BookingID
			}
			if be.Status != "" {
				body["status"] = be.Status
			}
			if be.Field != "" {
				body["field"] = be.Field
			}
			if be.Value != nil {
				body["value"] = be.Value
			}
		}
		if errors.Is(err, domain.ErrBusy) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(RetryAfterSeconds))
		}

		return c.Status(code).JSON(body)
	}
}
