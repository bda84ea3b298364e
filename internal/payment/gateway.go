// Package payment connects checkout to an external hosted payment provider.
package payment

import (
	"context"

	"github.com/go-faster/errors"
)

// Sentinel errors returned by gateways.
var (
	ErrUnknownPayment   = errors.New("unknown payment")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidEvent     = errors.New("invalid webhook event")
)

// Prefill carries customer details shown pre-filled by the provider.
type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Request describes one payment to collect.
type Request struct {
	// Amount in minor currency units (paise for INR).
	Amount      int64
	Currency    string
	Merchant    string
	Description string
	Prefill     Prefill
	Notes       map[string]string
}

// Callbacks receive the outcome of an opened payment. At most one of them
// is invoked per payment.
type Callbacks struct {
	OnSuccess func(reference string)
	OnFailure func(description string)
	OnDismiss func()
}

// Handle identifies an opened payment.
type Handle struct {
	ID          string
	CheckoutURL string
}

// Gateway opens payments with a provider and reports their outcome
// asynchronously through Callbacks.
type Gateway interface {
	Open(ctx context.Context, req Request, cb Callbacks) (Handle, error)
	// Release forgets a payment; later provider reports for it are rejected.
	Release(id string)
}
