// Package httpmiddleware provides the HTTP middleware chain of the API
// server.
package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// InjectLogger stores lg as the request-scoped logger, retrievable with
// zctx.From.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), lg)))
		})
	}
}

// RouteFinder returns the route template serving r, such as
// "/api/cart/paintings/{id}/{size}".
type RouteFinder func(r *http.Request) (string, bool)

// MuxRouteFinder finds routes registered on router.
func MuxRouteFinder(router *mux.Router) RouteFinder {
	return func(r *http.Request) (string, bool) {
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.Route == nil {
			return "", false
		}
		tpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return "", false
		}
		return tpl, true
	}
}

func routeName(find RouteFinder, r *http.Request) string {
	if find != nil {
		if tpl, ok := find(r); ok {
			return tpl
		}
	}
	return "unmatched"
}
