package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_BurstThenDeny(t *testing.T) {
	krl := NewWithTTL(1, 2, time.Minute, 0)
	defer krl.Stop()

	assert.True(t, krl.Allow("10.0.0.1"))
	assert.True(t, krl.Allow("10.0.0.1"))
	assert.False(t, krl.Allow("10.0.0.1"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	krl := NewWithTTL(1, 1, time.Minute, 0)
	defer krl.Stop()

	assert.True(t, krl.Allow("a"))
	assert.False(t, krl.Allow("a"))
	assert.True(t, krl.Allow("b"))
	assert.Equal(t, 2, krl.Len())
}

func TestWait_ContextCanceled(t *testing.T) {
	krl := NewWithTTL(0.001, 1, time.Minute, 0)
	defer krl.Stop()

	require.NoError(t, krl.Wait(context.Background(), "k"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, krl.Wait(ctx, "k"))
}

func TestEvict_DropsIdleKeys(t *testing.T) {
	krl := NewWithTTL(1, 1, time.Minute, 0)
	defer krl.Stop()

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	krl.now = func() time.Time { return clock }

	krl.Allow("old")
	clock = clock.Add(2 * time.Minute)
	krl.Allow("fresh")

	assert.Equal(t, 1, krl.Evict())
	assert.Equal(t, 1, krl.Len())
}

func TestStop_Idempotent(t *testing.T) {
	krl := New(1, 1)
	krl.Stop()
	assert.NotPanics(t, krl.Stop)
}

func TestMiddleware(t *testing.T) {
	krl := NewWithTTL(0.001, 1, time.Minute, 0)
	defer krl.Stop()

	h := Middleware(krl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method string) int {
		req := httptest.NewRequest(method, "/api/borrow/request", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost))
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet))
}
