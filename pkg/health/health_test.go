package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(_ context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

type response struct {
	Status string
	Checks map[string]string
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var r response
	d := jx.DecodeBytes(w.Body.Bytes())
	require.NoError(t, d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			s, err := d.Str()
			r.Status = s
			return err
		case "checks":
			r.Checks = make(map[string]string)
			return d.Obj(func(d *jx.Decoder, name string) error {
				s, err := d.Str()
				r.Checks[name] = s
				return err
			})
		default:
			return d.Skip()
		}
	}))
	return r
}

func serve(endpoint http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpointHealthyByDefault(t *testing.T) {
	h := New()
	h.Register(Liveness, Check{Name: "a", Func: passing})
	h.Register(Liveness, Check{Name: "b", Func: failing("never run")})

	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response{Status: "ok"}, decodeResponse(t, w))
}

func TestFailureThreshold(t *testing.T) {
	h := New()
	h.Register(Liveness, Check{Name: "db", FailureThreshold: 2, Func: failing("connection refused")})
	s := h.snapshot(Liveness)[0]
	ctx := context.Background()

	s.run(ctx)
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code)

	s.run(ctx)
	w := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, response{
		Status: "unhealthy",
		Checks: map[string]string{"db": "connection refused"},
	}, decodeResponse(t, w))
}

func TestSuccessThresholdRecovers(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)
	h := New()
	h.Register(Liveness, Check{
		Name:             "flaky",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Func: func(context.Context) error {
			if broken.Load() {
				return errors.New("down")
			}
			return nil
		},
	})
	s := h.snapshot(Liveness)[0]
	ctx := context.Background()

	s.run(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h.LiveEndpoint).Code)

	broken.Store(false)
	s.run(ctx)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h.LiveEndpoint).Code)
	s.run(ctx)
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code)
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.Register(Liveness, Check{
		Name:             "slow",
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	h.snapshot(Liveness)[0].run(context.Background())

	r := decodeResponse(t, serve(h.LiveEndpoint))
	assert.Equal(t, context.DeadlineExceeded.Error(), r.Checks["slow"])
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.Register(Readiness, Check{Name: "storage", FailureThreshold: 1, Func: failing("no route to host")})

	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, map[string]string{"_readiness": "service is not ready"}, decodeResponse(t, w).Checks)
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)
	assert.True(t, h.IsReady())

	h.snapshot(Readiness)[0].run(context.Background())
	w = serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, map[string]string{"storage": "no route to host"}, decodeResponse(t, w).Checks)
	assert.False(t, h.IsReady())

	// Liveness is unaffected by readiness checks.
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code)
}

func TestRun(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Register(Readiness, Check{
		Name:             "counted",
		FailureThreshold: 1,
		Func: func(context.Context) error {
			calls.Add(1)
			return errors.New("down")
		},
	})
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.False(t, h.IsReady())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, PingCheck(pinger{})(ctx))

	err := PingCheck(pinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	require.Error(t, GoroutineCountCheck(0)(ctx))
}
