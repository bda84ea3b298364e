package checkout

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shailyverma/art-studio/internal/domain/cart"
	"github.com/shailyverma/art-studio/internal/payment"
)

const instrumentationName = "github.com/shailyverma/art-studio/internal/domain/checkout"

// Sentinel errors for checkout.
var (
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrAttemptNotFound   = errors.New("checkout attempt not found")
)

// Carts resolves the cart of a visitor session.
type Carts interface {
	Get(ctx context.Context, sessionID string) *cart.Store
}

// Config holds the merchant details and attempt lifetimes.
type Config struct {
	Merchant string
	Currency string
	// Timeout after which a processing attempt is marked timed out.
	// Zero disables the timeout.
	Timeout time.Duration
	// Retention after which finished attempts are forgotten.
	Retention time.Duration
}

// Service hands carts off to the payment gateway and applies the outcome.
type Service struct {
	carts    Carts
	gateway  payment.Gateway
	cfg      Config
	lg       *zap.Logger
	now      func() time.Time
	tracer   trace.Tracer
	outcomes metric.Int64Counter

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	mu       sync.Mutex
	attempts map[string]*Attempt
	// active maps a session to its processing attempt.
	active map[string]string
}

// Option configures Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

func NewService(carts Carts, gateway payment.Gateway, cfg Config, lg *zap.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		carts:          carts,
		gateway:        gateway,
		cfg:            cfg,
		lg:             lg,
		now:            time.Now,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		attempts:       make(map[string]*Attempt),
		active:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	outcomes, err := s.meterProvider.Meter(instrumentationName).Int64Counter("studio.payment.outcomes",
		metric.WithDescription("Payment attempts by final status"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create outcomes counter")
	}
	s.outcomes = outcomes

	return s, nil
}

// Begin validates the form against the session's cart and opens a payment
// for the cart total. The form is validated before the cart is checked for
// emptiness; neither failure reaches the gateway.
func (s *Service) Begin(ctx context.Context, sessionID string, form Form) (Attempt, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Begin")
	defer span.End()

	store := s.carts.Get(ctx, sessionID)
	snap := store.Snapshot()

	if verr := Validate(form, snap.HasPhysicalItems); verr != nil {
		span.SetAttributes(attribute.String("checkout.invalid_field", verr.Field))
		return Attempt{}, verr
	}
	if len(snap.Items) == 0 {
		return Attempt{}, ErrEmptyCart
	}

	orderType := OrderMixed
	if snap.HasDigitalItems && !snap.HasPhysicalItems {
		orderType = OrderDigital
	}

	now := s.now()
	a := &Attempt{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Status:      StatusProcessing,
		OrderType:   orderType,
		Amount:      snap.TotalPrice,
		Currency:    s.cfg.Currency,
		Description: Description(snap.Items),
		Items:       slices.Clone(snap.Items),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	if _, busy := s.active[sessionID]; busy {
		s.mu.Unlock()
		return Attempt{}, ErrPaymentInProgress
	}
	s.attempts[a.ID] = a
	s.active[sessionID] = a.ID
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("checkout.attempt_id", a.ID),
		attribute.String("checkout.order_type", string(orderType)),
		attribute.Int("checkout.items", len(snap.Items)),
	)

	req := payment.Request{
		Amount:      snap.TotalPrice.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:    s.cfg.Currency,
		Merchant:    s.cfg.Merchant,
		Description: a.Description,
		Prefill: payment.Prefill{
			Name:    fullName(form),
			Email:   form.Email,
			Contact: form.Phone,
		},
		Notes: map[string]string{
			"address": shippingNote(form, snap.HasPhysicalItems),
		},
	}
	handle, err := s.gateway.Open(ctx, req, s.callbacks(a.ID))
	if err != nil {
		s.mu.Lock()
		delete(s.attempts, a.ID)
		delete(s.active, sessionID)
		s.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, "open payment")
		return Attempt{}, errors.Wrap(err, "open payment")
	}

	s.mu.Lock()
	a.PaymentID = handle.ID
	a.CheckoutURL = handle.CheckoutURL
	out := *a
	s.mu.Unlock()

	s.lg.Info("Checkout started",
		zap.String("attempt_id", out.ID),
		zap.String("payment_id", out.PaymentID),
		zap.String("amount", out.Amount.String()),
		zap.String("description", out.Description),
	)
	return out, nil
}

// Get returns the attempt with id if it belongs to sessionID.
func (s *Service) Get(sessionID, id string) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok || a.SessionID != sessionID {
		return Attempt{}, ErrAttemptNotFound
	}
	return *a, nil
}

func (s *Service) callbacks(id string) payment.Callbacks {
	return payment.Callbacks{
		OnSuccess: func(ref string) { s.succeed(id, ref) },
		OnFailure: func(desc string) { s.finish(id, StatusFailed, desc) },
		OnDismiss: func() { s.finish(id, StatusCancelled, "") },
	}
}

// succeed grants the items the attempt was opened for. It is honoured even
// after the attempt timed out. If the grant cannot be written the attempt
// still succeeds, carries a failure reason, and is retried by Sweep.
func (s *Service) succeed(id, ref string) {
	ctx, span := s.tracer.Start(context.Background(), "checkout.Succeed")
	defer span.End()

	s.mu.Lock()
	a, ok := s.attempts[id]
	if !ok || a.Status.Terminal() {
		s.mu.Unlock()
		s.lg.Warn("Ignoring payment success", zap.String("attempt_id", id), zap.Bool("known", ok))
		return
	}
	sessionID, items := a.SessionID, a.Items
	late := a.Status == StatusTimedOut
	s.mu.Unlock()

	err := s.record(ctx, sessionID, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record purchase")
		s.lg.Error("Failed to record purchase",
			zap.String("attempt_id", id),
			zap.String("reference", ref),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	a.Status = StatusSucceeded
	a.Reference = ref
	a.Recorded = err == nil
	a.FailureReason = ""
	if err != nil {
		a.FailureReason = unrecordedReason
	}
	a.UpdatedAt = s.now()
	s.releaseLocked(a)
	s.mu.Unlock()

	s.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(StatusSucceeded)),
		attribute.Bool("late", late),
	))
	s.lg.Info("Payment succeeded", zap.String("attempt_id", id), zap.String("reference", ref), zap.Bool("late", late))
}

const unrecordedReason = "payment captured but purchase not recorded"

func (s *Service) record(ctx context.Context, sessionID string, items []cart.Item) error {
	return s.carts.Get(ctx, sessionID).RecordPurchaseCompletion(ctx, items)
}

// finish moves a processing attempt to a failure status. The cart is left
// as is so the buyer can retry.
func (s *Service) finish(id string, status Status, reason string) {
	s.mu.Lock()
	a, ok := s.attempts[id]
	if !ok || a.Status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	a.Status = status
	a.FailureReason = reason
	a.UpdatedAt = s.now()
	s.releaseLocked(a)
	s.mu.Unlock()

	s.outcomes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", string(status))))
	s.lg.Info("Payment not completed",
		zap.String("attempt_id", id),
		zap.String("status", string(status)),
		zap.String("reason", reason),
	)
}

// releaseLocked lets the session start another attempt.
func (s *Service) releaseLocked(a *Attempt) {
	if s.active[a.SessionID] == a.ID {
		delete(s.active, a.SessionID)
	}
}

// Sweep times out processing attempts older than the configured timeout,
// retries unrecorded purchases and forgets finished attempts older than the
// retention. Unrecorded attempts are never forgotten. The gateway is told
// to release forgotten payments. It returns the number of attempts timed
// out.
func (s *Service) Sweep(ctx context.Context) int {
	now := s.now()
	var (
		timedOut int
		released []string
		pending  []*Attempt
	)

	s.mu.Lock()
	for id, a := range s.attempts {
		switch {
		case a.Status == StatusProcessing:
			if s.cfg.Timeout <= 0 || now.Sub(a.CreatedAt) < s.cfg.Timeout {
				continue
			}
			a.Status = StatusTimedOut
			a.FailureReason = "payment timed out"
			a.UpdatedAt = now
			s.releaseLocked(a)
			timedOut++
		case a.Status == StatusSucceeded && !a.Recorded:
			pending = append(pending, a)
		case s.cfg.Retention > 0 && now.Sub(a.UpdatedAt) >= s.cfg.Retention:
			delete(s.attempts, id)
			if a.PaymentID != "" {
				released = append(released, a.PaymentID)
			}
		}
	}
	s.mu.Unlock()

	for _, a := range pending {
		s.retryRecord(ctx, a)
	}
	for _, id := range released {
		s.gateway.Release(id)
	}
	if timedOut > 0 {
		s.outcomes.Add(ctx, int64(timedOut), metric.WithAttributes(attribute.String("status", string(StatusTimedOut))))
		s.lg.Info("Payment attempts timed out", zap.Int("count", timedOut))
	}
	return timedOut
}

// retryRecord writes the purchase of a succeeded attempt whose first write
// failed. Succeeded attempts are not mutated elsewhere, so the fields read
// here are stable.
func (s *Service) retryRecord(ctx context.Context, a *Attempt) {
	s.mu.Lock()
	sessionID, items := a.SessionID, a.Items
	s.mu.Unlock()

	if err := s.record(ctx, sessionID, items); err != nil {
		s.lg.Warn("Purchase still not recorded", zap.String("attempt_id", a.ID), zap.Error(err))
		return
	}

	s.mu.Lock()
	a.Recorded = true
	a.FailureReason = ""
	a.UpdatedAt = s.now()
	s.mu.Unlock()
	s.lg.Info("Purchase recorded on retry", zap.String("attempt_id", a.ID))
}

// Run sweeps every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
