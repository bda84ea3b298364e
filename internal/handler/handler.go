// Package handler exposes the catalog, cart and checkout over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shailyverma/art-studio/internal/domain/cart"
	"github.com/shailyverma/art-studio/internal/domain/catalog"
	"github.com/shailyverma/art-studio/internal/domain/checkout"
	"github.com/shailyverma/art-studio/internal/payment"
)

// Carts resolves the cart of a visitor session.
type Carts interface {
	Get(ctx context.Context, sessionID string) *cart.Store
}

// Checkout starts payment attempts and reports their state.
type Checkout interface {
	Begin(ctx context.Context, sessionID string, form checkout.Form) (checkout.Attempt, error)
	Get(sessionID, id string) (checkout.Attempt, error)
}

// Webhooks verifies and applies payment provider reports.
type Webhooks interface {
	Verify(body []byte, signature string) error
	Resolve(id string, n payment.Notification) error
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// SessionCookie is the name of the cookie carrying the session id.
	SessionCookie string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// Handler serves the studio API.
type Handler struct {
	catalog  catalog.Provider
	carts    Carts
	checkout Checkout
	webhooks Webhooks

	cookie       string
	secureCookie bool
}

func New(cfg Config, p catalog.Provider, carts Carts, co Checkout, webhooks Webhooks) *Handler {
	cookie := cfg.SessionCookie
	if cookie == "" {
		cookie = DefaultSessionCookie
	}
	return &Handler{
		catalog:      p,
		carts:        carts,
		checkout:     co,
		webhooks:     webhooks,
		cookie:       cookie,
		secureCookie: cfg.SecureCookie,
	}
}

// Register mounts the API routes under /api on r.
func (h *Handler) Register(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, errRouteNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, errMethod)
	})

	api := r.PathPrefix("/api").Subrouter()

	// Provider callbacks carry no visitor session.
	api.HandleFunc("/payments/{id}/webhook", h.PaymentWebhook).Methods(http.MethodPost)

	s := api.NewRoute().Subrouter()
	s.Use(h.withSession)

	s.HandleFunc("/catalog/paintings", h.ListPaintings).Methods(http.MethodGet)
	s.HandleFunc("/catalog/paintings/{slug}", h.GetPainting).Methods(http.MethodGet)
	s.HandleFunc("/catalog/courses", h.ListCourses).Methods(http.MethodGet)
	s.HandleFunc("/catalog/courses/{slug}", h.GetCourse).Methods(http.MethodGet)
	s.HandleFunc("/catalog/categories", h.ListCategories).Methods(http.MethodGet)

	s.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	s.HandleFunc("/cart", h.ClearCart).Methods(http.MethodDelete)
	s.HandleFunc("/cart/paintings", h.AddPainting).Methods(http.MethodPost)
	s.HandleFunc("/cart/paintings/{id:[0-9]+}/{size}", h.UpdatePainting).Methods(http.MethodPut)
	s.HandleFunc("/cart/paintings/{id:[0-9]+}/{size}", h.RemovePainting).Methods(http.MethodDelete)
	s.HandleFunc("/cart/courses", h.AddCourse).Methods(http.MethodPost)
	s.HandleFunc("/cart/courses/{id}", h.RemoveCourse).Methods(http.MethodDelete)
	s.HandleFunc("/cart/open", h.SetOpen).Methods(http.MethodPut)

	s.HandleFunc("/library", h.Library).Methods(http.MethodGet)

	s.HandleFunc("/checkout", h.BeginCheckout).Methods(http.MethodPost)
	s.HandleFunc("/checkout/{id}", h.GetCheckout).Methods(http.MethodGet)
}
