package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mw("outer"), mw("middle"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "middle", "inner"}, calls)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), InjectLogger(zap.New(core)), Recovery())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestRecovery_AbortHandlerRepanics(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	var seen string
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		zctx.From(r.Context()).Info("handled")
	}), InjectLogger(zap.New(core)), RequestID())

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

		last := logs.All()[logs.Len()-1]
		assert.Equal(t, "req-123", last.ContextMap()["request_id"])
	})

	t.Run("invalid replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 129))
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Len(t, seen, 36)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		headers    map[string]string
		wantStatus int
		wantHeader map[string]string
	}{
		{
			name:       "allowed origin echoes configured spelling",
			cfg:        CORSConfig{AllowOrigins: []string{"https://Studio.example"}},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://studio.example"},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{"Access-Control-Allow-Origin": "https://Studio.example", "Vary": "Origin"},
		},
		{
			name:       "disallowed origin",
			cfg:        CORSConfig{AllowOrigins: []string{"https://studio.example"}},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://evil.example"},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{"Access-Control-Allow-Origin": ""},
		},
		{
			name:       "wildcard",
			cfg:        CORSConfig{},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://any.example"},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{"Access-Control-Allow-Origin": "*"},
		},
		{
			name:       "wildcard with credentials echoes origin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true, ExposeHeaders: []string{"X-Session-ID"}},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://any.example"},
			wantStatus: http.StatusOK,
			wantHeader: map[string]string{
				"Access-Control-Allow-Origin":      "https://any.example",
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Expose-Headers":    "X-Session-ID",
			},
		},
		{
			name:   "preflight",
			cfg:    CORSConfig{AllowOrigins: []string{"https://studio.example"}, MaxAge: 600},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                         "https://studio.example",
				"Access-Control-Request-Method":  "PUT",
				"Access-Control-Request-Headers": "Content-Type, X-Session-ID",
			},
			wantStatus: http.StatusNoContent,
			wantHeader: map[string]string{
				"Access-Control-Allow-Origin":  "https://studio.example",
				"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
				"Access-Control-Allow-Headers": "Content-Type, X-Session-ID",
				"Access-Control-Max-Age":       "600",
			},
		},
		{
			name:   "preflight from disallowed origin",
			cfg:    CORSConfig{AllowOrigins: []string{"https://studio.example"}},
			method: http.MethodOptions,
			headers: map[string]string{
				"Origin":                        "https://evil.example",
				"Access-Control-Request-Method": "DELETE",
			},
			wantStatus: http.StatusNoContent,
			wantHeader: map[string]string{"Access-Control-Allow-Origin": "", "Access-Control-Allow-Methods": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/cart", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			for k, v := range tt.wantHeader {
				assert.Equal(t, v, w.Header().Get(k), k)
			}
		})
	}
}

func TestLogRequests(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	router := mux.NewRouter()
	router.HandleFunc("/api/cart/paintings/{id}/{size}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}).Methods(http.MethodPut)
	router.HandleFunc("/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	find := MuxRouteFinder(router)
	h := Wrap(router, InjectLogger(zap.New(core)), LogRequests(find))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/cart/paintings/1/A3", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "/api/cart/paintings/{id}/{size}", first["route"])
	assert.Equal(t, int64(http.StatusCreated), first["status"])
	assert.Equal(t, int64(2), first["bytes"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "unmatched", entries[2].ContextMap()["route"])
	assert.Equal(t, int64(http.StatusNotFound), entries[2].ContextMap()["status"])
}

func TestRateLimitBody_IsJSON(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 0, Window: 1})
	w := httptest.NewRecorder()
	rl.Middleware()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 429, body.Code)
}
