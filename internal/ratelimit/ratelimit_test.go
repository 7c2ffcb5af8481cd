package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := store.Incr(ctx, "k", 50*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	time.Sleep(60 * time.Millisecond)
	n, err := store.Incr(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLimiterAllow(t *testing.T) {
	l := &Limiter{Store: NewMemoryStore(), Window: time.Minute, Max: 2}
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "ip1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "ip1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "ip1")
	assert.False(t, ok)

	// Chaves diferentes não compartilham o contador.
	ok, _ = l.Allow(ctx, "ip2")
	assert.True(t, ok)
}

func TestLimiterDisabled(t *testing.T) {
	l := &Limiter{Store: NewMemoryStore(), Window: time.Minute, Max: 1, Disabled: true}
	for i := 0; i < 10; i++ {
		ok, _ := l.Allow(context.Background(), "ip1")
		assert.True(t, ok)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW_MS", "")
	t.Setenv("RATE_LIMIT_AUTH_MAX", "")
	t.Setenv("RATE_LIMIT_DISABLE", "")
	l := FromEnv(NewMemoryStore())
	assert.Equal(t, time.Minute, l.Window)
	assert.Equal(t, int64(30), l.Max)
	assert.False(t, l.Disabled)

	t.Setenv("RATE_LIMIT_WINDOW_MS", "5000")
	t.Setenv("RATE_LIMIT_AUTH_MAX", "3")
	t.Setenv("RATE_LIMIT_DISABLE", "1")
	l = FromEnv(NewMemoryStore())
	assert.Equal(t, 5*time.Second, l.Window)
	assert.Equal(t, int64(3), l.Max)
	assert.True(t, l.Disabled)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := &Limiter{Store: NewMemoryStore(), Window: time.Minute, Max: 2}

	r := gin.New()
	r.POST("/login", l.Middleware("auth"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
