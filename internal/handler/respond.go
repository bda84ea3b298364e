package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shailyverma/art-studio/internal/domain/catalog"
	"github.com/shailyverma/art-studio/internal/domain/checkout"
	"github.com/shailyverma/art-studio/internal/payment"
)

const maxBodySize = 64 << 10

var (
	errAlreadyOwned  = errors.New("course already owned")
	errRouteNotFound = errors.New("route not found")
	errMethod        = errors.New("method not allowed")
)

// BadRequestError reports a malformed request body or parameter.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string {
	return e.Err.Error()
}

func (e *BadRequestError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...any) error {
	return &BadRequestError{Err: errors.Errorf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, field := http.StatusInternalServerError, "internal error", ""

	var (
		verr *checkout.ValidationError
		berr *BadRequestError
	)
	switch {
	case errors.As(err, &verr):
		status, message, field = http.StatusUnprocessableEntity, verr.Message, verr.Field
	case errors.Is(err, checkout.ErrEmptyCart):
		status, message = http.StatusUnprocessableEntity, "Your cart is empty"
	case errors.As(err, &berr):
		status, message = http.StatusBadRequest, berr.Error()
	case errors.Is(err, payment.ErrInvalidEvent):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, checkout.ErrAttemptNotFound),
		errors.Is(err, payment.ErrUnknownPayment):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, errRouteNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, errMethod):
		status, message = http.StatusMethodNotAllowed, err.Error()
	case errors.Is(err, errAlreadyOwned),
		errors.Is(err, checkout.ErrPaymentInProgress):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, payment.ErrInvalidSignature):
		status, message = http.StatusUnauthorized, err.Error()
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		if field != "" {
			e.FieldStart("field")
			e.Str(field)
		}
		e.ObjEnd()
	})
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) > maxBodySize {
		return nil, badRequest("request body too large")
	}
	return data, nil
}

// decodeObject reads a JSON object body, calling fn for every field.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if err := jx.DecodeBytes(data).Obj(fn); err != nil {
		return &BadRequestError{Err: errors.Wrap(err, "invalid json body")}
	}
	return nil
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.InexactFloat64())
}
