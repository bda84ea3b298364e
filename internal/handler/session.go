package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultSessionCookie is used when Config.SessionCookie is empty.
	DefaultSessionCookie = "studio_session"
	// SessionHeader lets non-browser clients pass the session explicitly.
	SessionHeader = "X-Session-ID"

	sessionMaxAge = 365 * 24 * time.Hour
)

type sessionKey struct{}

// SessionFromContext returns the visitor session id resolved for the request.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// withSession resolves the visitor session from the cookie or header and
// issues a new one when neither carries a valid id.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, fromCookie := "", false
		if c, err := r.Cookie(h.cookie); err == nil && validSessionID(c.Value) {
			id, fromCookie = c.Value, true
		} else if v := r.Header.Get(SessionHeader); validSessionID(v) {
			id = v
		}
		if id == "" {
			id = uuid.NewString()
		}

		if !fromCookie {
			http.SetCookie(w, &http.Cookie{
				Name:     h.cookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   h.secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, id)

		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		ctx = zctx.With(ctx, zap.String("session", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validSessionID(v string) bool {
	if v == "" {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}
