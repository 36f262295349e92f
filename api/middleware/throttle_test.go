package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/housebook/housebook-backend/pkg/errors"
)

type memCounter struct {
	mu     sync.Mutex
	hits   map[string]int64
	failed error
}

func (m *memCounter) Hit(_ context.Context, scope string, _ time.Duration) (int64, error) {
	if m.failed != nil {
		return 0, m.failed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hits == nil {
		m.hits = map[string]int64{}
	}
	m.hits[scope]++
	return m.hits[scope], nil
}

func loginRequest(email, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"pw"}`))
	req.RemoteAddr = addr
	return req
}

func echoBody(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"password":"pw"`)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthThrottlePassesBodyThrough(t *testing.T) {
	h := AuthThrottle(Throttle{Route: "login", Window: time.Minute, PerIP: 5, PerEmail: 5}, &memCounter{}, nil)(echoBody(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("a@example.com", "10.0.0.1:4000"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthThrottleEmailBudgetSpansAddresses(t *testing.T) {
	h := AuthThrottle(Throttle{Route: "login", Window: time.Minute, PerEmail: 2}, &memCounter{}, nil)(echoBody(t))

	addrs := []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"}
	var last *httptest.ResponseRecorder
	for _, addr := range addrs {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, loginRequest(" Owner@Example.com ", addr))
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &env))
	assert.Equal(t, string(pkgerrors.CodeRateLimit), env.Error.Code)
}

func TestAuthThrottleIPBudget(t *testing.T) {
	counter := &memCounter{}
	h := AuthThrottle(Throttle{Route: "Register", Window: time.Minute, PerIP: 1}, counter, nil)(echoBody(t))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, loginRequest("a@example.com", "10.0.0.9:1"))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, loginRequest("b@example.com", "10.0.0.9:2"))

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, counter.hits, "register:ip:10.0.0.9")
}

func TestAuthThrottleCounterDown(t *testing.T) {
	h := AuthThrottle(Throttle{Window: time.Minute, PerIP: 1}, &memCounter{failed: errors.New("down")}, nil)(echoBody(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("a@example.com", "10.0.0.1:1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthThrottleDisabled(t *testing.T) {
	h := AuthThrottle(Throttle{Route: "login"}, &memCounter{failed: errors.New("unused")}, nil)(echoBody(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("a@example.com", "10.0.0.1:1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
