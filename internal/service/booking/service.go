package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/observability/telemetry"
	"github.com/seu-repo/handover-engine/internal/ports"
	"github.com/seu-repo/handover-engine/internal/service/verification"
)

const (
	defaultCacheTTL = 10 * time.Minute
	defaultCurrency = "inr"
)

// Service is the booking state machine. Every mutation runs as
// lock -> load -> mutate a clone -> persist -> publish, so a rejected
// operation never leaves a partial change behind.
type Service struct {
	repo      ports.BookingRepository
	locker    ports.Locker
	cache     ports.Cache
	vehicles  ports.VehicleCatalog
	customers ports.CustomerDirectory
	notifier  ports.Notifier
	gateway   ports.PaymentGateway
	verifier  *verification.Ledger
	tracer    trace.Tracer
	log       *zap.Logger

	now      func() time.Time
	cacheTTL time.Duration
	currency string
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithPaymentGateway enables RequestPaymentLink.
func WithPaymentGateway(gw ports.PaymentGateway, currency string) Option {
	return func(s *Service) {
		s.gateway = gw
		if currency != "" {
			s.currency = strings.ToLower(currency)
		}
	}
}

func NewService(
	repo ports.BookingRepository,
	locker ports.Locker,
	cache ports.Cache,
	vehicles ports.VehicleCatalog,
	customers ports.CustomerDirectory,
	notifier ports.Notifier,
	log *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		locker:    locker,
		cache:     cache,
		vehicles:  vehicles,
		customers: customers,
		notifier:  notifier,
		tracer:    otel.Tracer("handover-engine/booking"),
		log:       log,
		now:       time.Now,
		cacheTTL:  defaultCacheTTL,
		currency:  defaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.verifier = verification.NewLedger(s.now)
	return s
}

var _ ports.BookingService = (*Service)(nil)

// mutateFunc changes b in place and raises events on ev. commit asks for the
// booking to be persisted even when err is non-nil.
type mutateFunc func(b *domain.Booking, ev *eventLog) (commit bool, err error)

// eventLog collects the events raised by one mutation. They are published
// after the save while the lock is still held, so the notifier receives
// them in commit order.
type eventLog struct {
	raised []raisedEvent
}

type raisedEvent struct {
	typ    domain.EventType
	amount domain.Money
	code   string
}

func (l *eventLog) raise(typ domain.EventType, amount domain.Money, code string) {
	l.raised = append(l.raised, raisedEvent{typ: typ, amount: amount, code: code})
}

func (s *Service) mutate(ctx context.Context, id, op string, fn mutateFunc) (b *domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking."+op, trace.WithAttributes(attribute.String("booking.id", id)))
	defer func() {
		s.observe(span, op, err)
		span.End()
	}()

	waitStart := time.Now()
	lock, err := s.locker.Acquire(ctx, lockKey(id))
	telemetry.LockWaitSeconds.Observe(time.Since(waitStart).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrBusy) {
			return nil, &domain.BookingError{Kind: domain.ErrBusy, BookingID: id, Message: "another operation holds this booking"}
		}
		return nil, fmt.Errorf("failed to acquire booking lock: %w", err)
	}

	// Once the lock is held the operation runs to completion.
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if rerr := lock.Release(ctx); rerr != nil {
			s.log.Warn("Failed to release booking lock", zap.String("booking_id", id), zap.Error(rerr))
		}
	}()

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if current == nil {
		return nil, &domain.BookingError{Kind: domain.ErrNotFound, BookingID: id, Message: "booking not found"}
	}

	working := current.Clone()
	var events eventLog
	commit, opErr := fn(working, &events)
	if commit {
		working.UpdatedAt = s.now().UTC()
		if err := s.repo.Save(ctx, working); err != nil {
			if errors.Is(err, ports.ErrVersionConflict) {
				return nil, domain.NewBookingError(domain.ErrBusy, current, "booking changed concurrently")
			}
			return nil, fmt.Errorf("failed to save booking: %w", err)
		}
		s.writeCache(ctx, working)
		if working.Status != current.Status {
			telemetry.BookingTransitionsTotal.WithLabelValues(string(working.Status)).Inc()
			s.log.Info("Booking status changed",
				zap.String("booking_id", id),
				zap.String("from", string(current.Status)),
				zap.String("to", string(working.Status)),
			)
		}
	}
	if opErr != nil {
		return nil, opErr
	}
	if commit {
		for _, e := range events.raised {
			s.publish(ctx, e.typ, working, e.amount, e.code)
		}
	}
	return working, nil
}

func (s *Service) observe(span trace.Span, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(domain.Code(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("booking.outcome", outcome))
	telemetry.OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// GetBooking serves the read model: the cache first, then the last committed record.
func (s *Service) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.InvalidInput("booking_id", id, "must not be empty")
	}

	if b := s.readCache(ctx, id); b != nil {
		return b, nil
	}

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return nil, &domain.BookingError{Kind: domain.ErrNotFound, BookingID: id, Message: "booking not found"}
	}
	s.writeCache(ctx, b)
	return b, nil
}

func (s *Service) readCache(ctx context.Context, id string) *domain.Booking {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey(id))
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.log.Warn("Booking cache read failed", zap.String("booking_id", id), zap.Error(err))
		}
		return nil
	}
	var b domain.Booking
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		s.log.Warn("Discarding malformed cached booking", zap.String("booking_id", id), zap.Error(err))
		return nil
	}
	return &b
}

func (s *Service) writeCache(ctx context.Context, b *domain.Booking) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		s.log.Warn("Failed to encode booking for cache", zap.String("booking_id", b.ID), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, cacheKey(b.ID), string(data), s.cacheTTL); err != nil {
		s.log.Warn("Booking cache write failed", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, typ domain.EventType, b *domain.Booking, amount domain.Money, code string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, domain.BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		Version:    b.Version,
		SellerID:   b.SellerID,
		CustomerID: b.CustomerID,
		Status:     b.Status,
		Total:      b.Billing.Total,
		BalanceDue: b.BalanceDue(),
		Amount:     amount,
		Code:       code,
		OccurredAt: s.now().UTC(),
	})
}

func lockKey(id string) string {
	return "booking:" + id
}

func cacheKey(id string) string {
	return "booking:" + id
}
