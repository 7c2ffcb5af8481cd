// Package ratelimit fornece um limitador de janela fixa injetável nas rotas
// de autenticação. O contador vive num Store plugável: Redis em produção,
// memória nos testes.
package ratelimit

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Store acumula tentativas por chave dentro de uma janela.
type Store interface {
	// Incr soma 1 à chave e devolve o total corrente. A chave expira ao fim
	// da janela contada a partir da primeira tentativa.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter aplica janela fixa: no máximo Max tentativas por chave por Window.
type Limiter struct {
	Store    Store
	Window   time.Duration
	Max      int64
	Disabled bool
}

// FromEnv monta o limitador com RATE_LIMIT_WINDOW_MS (padrão 60000),
// RATE_LIMIT_AUTH_MAX (padrão 30) e RATE_LIMIT_DISABLE.
func FromEnv(store Store) *Limiter {
	windowMS := int64(60000)
	if raw := os.Getenv("RATE_LIMIT_WINDOW_MS"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			windowMS = v
		}
	}
	max := int64(30)
	if raw := os.Getenv("RATE_LIMIT_AUTH_MAX"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			max = v
		}
	}
	return &Limiter{
		Store:    store,
		Window:   time.Duration(windowMS) * time.Millisecond,
		Max:      max,
		Disabled: os.Getenv("RATE_LIMIT_DISABLE") == "1" || os.Getenv("RATE_LIMIT_DISABLE") == "true",
	}
}

// Allow consulta e consome uma tentativa para a chave.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.Disabled || l.Store == nil {
		return true, nil
	}
	count, err := l.Store.Incr(ctx, key, l.Window)
	if err != nil {
		// Indisponibilidade do contador não derruba o login.
		return true, err
	}
	return count <= l.Max, nil
}

// Middleware limita por IP de origem sob o prefixo informado.
func (l *Limiter) Middleware(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, _ := l.Allow(c.Request.Context(), prefix+":"+c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Muitas tentativas. Tente novamente em instantes."})
			return
		}
		c.Next()
	}
}

// RedisStore conta em Redis com INCR + EXPIRE NX.
type RedisStore struct {
	RDB *redis.Client
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.RDB.TxPipeline()
	incr := pipe.Incr(ctx, "ratelimit:"+key)
	pipe.ExpireNX(ctx, "ratelimit:"+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryStore conta em memória. Serve para testes e para rodar sem Redis.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int64
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	b, ok := s.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, nil
}
