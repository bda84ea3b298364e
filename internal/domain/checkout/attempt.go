package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shailyverma/art-studio/internal/domain/cart"
)

// Status of a payment attempt.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusTimedOut   Status = "timed_out"
)

// Terminal reports whether no further transition is expected. A timed out
// attempt can still succeed if the provider captures late.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// OrderType tells the confirmation view what was bought.
type OrderType string

const (
	OrderDigital OrderType = "digital"
	OrderMixed   OrderType = "mixed"
)

// Attempt is one hand-off of a cart to the payment gateway.
type Attempt struct {
	ID            string
	SessionID     string
	PaymentID     string
	Status        Status
	OrderType     OrderType
	Amount        decimal.Decimal
	Currency      string
	Description   string
	// Items are the cart lines the amount was computed from. A success
	// grants and clears exactly these.
	Items         []cart.Item
	CheckoutURL   string
	Reference     string
	FailureReason string
	// Recorded is set once a succeeded attempt's items were written to the
	// cart. Until then Sweep retries the write.
	Recorded      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
