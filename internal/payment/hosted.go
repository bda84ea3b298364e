package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ Gateway = (*Hosted)(nil)

// Event is a provider report type.
type Event string

const (
	EventCaptured  Event = "payment.captured"
	EventFailed    Event = "payment.failed"
	EventDismissed Event = "checkout.dismissed"
)

// Notification is a decoded provider webhook body.
type Notification struct {
	Event     Event
	Reference string
	Error     string
}

// Hosted redirects the buyer to a provider-hosted checkout page and learns
// the outcome from the provider's signed webhook.
type Hosted struct {
	checkoutURL *url.URL
	secret      []byte
	lg          *zap.Logger

	mu      sync.Mutex
	pending map[string]pendingPayment
}

type pendingPayment struct {
	req Request
	cb  Callbacks
}

// NewHosted creates a Hosted gateway. An empty secret disables webhook
// signature verification.
func NewHosted(checkoutURL, secret string, lg *zap.Logger) (*Hosted, error) {
	u, err := url.Parse(checkoutURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse checkout url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("checkout url %q must be absolute", checkoutURL)
	}
	return &Hosted{
		checkoutURL: u,
		secret:      []byte(secret),
		lg:          lg,
		pending:     make(map[string]pendingPayment),
	}, nil
}

func (h *Hosted) Open(_ context.Context, req Request, cb Callbacks) (Handle, error) {
	if req.Amount <= 0 {
		return Handle{}, errors.Errorf("amount must be positive, got %d", req.Amount)
	}
	if req.Currency == "" {
		return Handle{}, errors.New("currency is required")
	}

	id := uuid.NewString()

	u := *h.checkoutURL
	q := u.Query()
	q.Set("payment_id", id)
	u.RawQuery = q.Encode()

	h.mu.Lock()
	h.pending[id] = pendingPayment{req: req, cb: cb}
	h.mu.Unlock()

	h.lg.Debug("Payment opened",
		zap.String("payment_id", id),
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)
	return Handle{ID: id, CheckoutURL: u.String()}, nil
}

func (h *Hosted) Release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, id)
}

// Pending returns the request of a payment that has not been resolved yet.
func (h *Hosted) Pending(id string) (Request, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pending[id]
	return p.req, ok
}

// Resolve delivers a provider report for payment id to its callbacks.
func (h *Hosted) Resolve(id string, n Notification) error {
	switch n.Event {
	case EventCaptured, EventFailed, EventDismissed:
	default:
		return errors.Wrapf(ErrInvalidEvent, "event %q", n.Event)
	}

	h.mu.Lock()
	p, ok := h.pending[id]
	delete(h.pending, id)
	h.mu.Unlock()
	if !ok {
		return ErrUnknownPayment
	}

	h.lg.Info("Payment resolved", zap.String("payment_id", id), zap.String("event", string(n.Event)))

	switch n.Event {
	case EventCaptured:
		if p.cb.OnSuccess != nil {
			p.cb.OnSuccess(n.Reference)
		}
	case EventFailed:
		if p.cb.OnFailure != nil {
			p.cb.OnFailure(n.Error)
		}
	case EventDismissed:
		if p.cb.OnDismiss != nil {
			p.cb.OnDismiss()
		}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under the webhook secret.
func (h *Hosted) Sign(body []byte) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the webhook signature of body.
func (h *Hosted) Verify(body []byte, signature string) error {
	if len(h.secret) == 0 {
		return nil
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseNotification decodes a webhook body:
//
//	{"event":"payment.failed","reference":"pay_123","error":{"description":"card declined"}}
func ParseNotification(data []byte) (Notification, error) {
	var n Notification
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "event":
			var s string
			s, err = d.Str()
			n.Event = Event(s)
		case "reference":
			n.Reference, err = d.Str()
		case "error":
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.Obj(func(d *jx.Decoder, key string) error {
				if key != "description" {
					return d.Skip()
				}
				var err error
				n.Error, err = d.Str()
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return Notification{}, errors.Wrap(err, "decode notification")
	}
	if n.Event == "" {
		return Notification{}, errors.Wrap(ErrInvalidEvent, "missing event")
	}
	return n, nil
}
