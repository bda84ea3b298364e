package payment

import (
	"context"
	"net/url"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	success   []string
	failure   []string
	dismissed int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnSuccess: func(ref string) { r.success = append(r.success, ref) },
		OnFailure: func(desc string) { r.failure = append(r.failure, desc) },
		OnDismiss: func() { r.dismissed++ },
	}
}

func newHosted(t *testing.T, secret string) *Hosted {
	t.Helper()
	h, err := NewHosted("https://pay.example.com/checkout?theme=brown", secret, zap.NewNop())
	require.NoError(t, err)
	return h
}

func testRequest() Request {
	return Request{Amount: 1600000, Currency: "INR", Merchant: "Shaily Verma Art Studio", Description: "1 course(s) + 1 painting(s)"}
}

func TestNewHosted_RejectsRelativeURL(t *testing.T) {
	_, err := NewHosted("/checkout", "", zap.NewNop())
	require.Error(t, err)
}

func TestHosted_Open(t *testing.T) {
	h := newHosted(t, "")

	handle, err := h.Open(context.Background(), testRequest(), Callbacks{})
	require.NoError(t, err)
	require.NotEmpty(t, handle.ID)

	u, err := url.Parse(handle.CheckoutURL)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", u.Host)
	assert.Equal(t, handle.ID, u.Query().Get("payment_id"))
	assert.Equal(t, "brown", u.Query().Get("theme"))

	req, ok := h.Pending(handle.ID)
	require.True(t, ok)
	assert.Equal(t, int64(1600000), req.Amount)
}

func TestHosted_OpenValidation(t *testing.T) {
	h := newHosted(t, "")

	_, err := h.Open(context.Background(), Request{Currency: "INR"}, Callbacks{})
	require.Error(t, err)

	_, err = h.Open(context.Background(), Request{Amount: 100}, Callbacks{})
	require.Error(t, err)
}

func TestHosted_Resolve(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want recorder
	}{
		{name: "captured", n: Notification{Event: EventCaptured, Reference: "pay_1"}, want: recorder{success: []string{"pay_1"}}},
		{name: "failed", n: Notification{Event: EventFailed, Error: "card declined"}, want: recorder{failure: []string{"card declined"}}},
		{name: "dismissed", n: Notification{Event: EventDismissed}, want: recorder{dismissed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHosted(t, "")
			var rec recorder
			handle, err := h.Open(context.Background(), testRequest(), rec.callbacks())
			require.NoError(t, err)

			require.NoError(t, h.Resolve(handle.ID, tt.n))
			assert.Equal(t, tt.want, rec)

			// A payment resolves at most once.
			err = h.Resolve(handle.ID, Notification{Event: EventCaptured})
			require.ErrorIs(t, err, ErrUnknownPayment)
			assert.Equal(t, tt.want, rec)
		})
	}
}

func TestHosted_ResolveInvalidEventKeepsPending(t *testing.T) {
	h := newHosted(t, "")
	var rec recorder
	handle, err := h.Open(context.Background(), testRequest(), rec.callbacks())
	require.NoError(t, err)

	err = h.Resolve(handle.ID, Notification{Event: "payment.refunded"})
	require.ErrorIs(t, err, ErrInvalidEvent)

	_, ok := h.Pending(handle.ID)
	assert.True(t, ok)
}

func TestHosted_Release(t *testing.T) {
	h := newHosted(t, "")
	var rec recorder
	handle, err := h.Open(context.Background(), testRequest(), rec.callbacks())
	require.NoError(t, err)

	h.Release(handle.ID)

	err = h.Resolve(handle.ID, Notification{Event: EventCaptured})
	require.True(t, errors.Is(err, ErrUnknownPayment))
	assert.Empty(t, rec.success)
}

func TestHosted_Verify(t *testing.T) {
	h := newHosted(t, "whsec_test")
	body := []byte(`{"event":"payment.captured","reference":"pay_1"}`)

	require.NoError(t, h.Verify(body, h.Sign(body)))
	require.ErrorIs(t, h.Verify(body, "zz"), ErrInvalidSignature)
	require.ErrorIs(t, h.Verify(body, ""), ErrInvalidSignature)
	require.ErrorIs(t, h.Verify([]byte(`{}`), h.Sign(body)), ErrInvalidSignature)

	open := newHosted(t, "")
	require.NoError(t, open.Verify(body, ""))
}

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Notification
		wantErr bool
	}{
		{
			name:  "captured",
			input: `{"event":"payment.captured","reference":"pay_29QQoUBi66xm2f","created_at":1700000000}`,
			want:  Notification{Event: EventCaptured, Reference: "pay_29QQoUBi66xm2f"},
		},
		{
			name:  "failed",
			input: `{"event":"payment.failed","error":{"code":"BAD_REQUEST_ERROR","description":"Payment declined by bank"}}`,
			want:  Notification{Event: EventFailed, Error: "Payment declined by bank"},
		},
		{
			name:  "null error",
			input: `{"event":"checkout.dismissed","error":null}`,
			want:  Notification{Event: EventDismissed},
		},
		{name: "missing event", input: `{"reference":"x"}`, wantErr: true},
		{name: "not object", input: `["payment.captured"]`, wantErr: true},
		{name: "bad error", input: `{"event":"payment.failed","error":"boom"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNotification([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
