package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/shailyverma/art-studio/internal/domain/checkout"
	"github.com/shailyverma/art-studio/internal/payment"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "X-Gateway-Signature"

// BeginCheckout validates the checkout form and hands the cart to the
// payment gateway.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "firstName":
			dst = &form.FirstName
		case "lastName":
			dst = &form.LastName
		case "email":
			dst = &form.Email
		case "phone":
			dst = &form.Phone
		case "address":
			dst = &form.Address
		case "city":
			dst = &form.City
		case "state":
			dst = &form.State
		case "pincode":
			dst = &form.Pincode
		default:
			return d.Skip()
		}
		v, err := d.Str()
		*dst = v
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.checkout.Begin(r.Context(), SessionFromContext(r.Context()), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeAttempt(e, a)
	})
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	a, err := h.checkout.Get(SessionFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeAttempt(e, a)
	})
}

// PaymentWebhook applies a signed provider report to a pending payment.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.webhooks.Verify(body, r.Header.Get(SignatureHeader)); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := payment.ParseNotification(body)
	if err != nil {
		writeError(w, r, &BadRequestError{Err: err})
		return
	}
	if err := h.webhooks.Resolve(mux.Vars(r)["id"], n); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
