package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize bounds concurrent outbound connections when no size is
// configured.
const DefaultPoolSize = 10

// Pool bounds the number of concurrent outbound requests. Acquisition is
// scoped: every slot taken is returned through the release function,
// success or failure, so failed requests cannot leak slots.
type Pool struct {
	size int64
	sem  *semaphore.Weighted
}

// NewPool creates a pool of the given size.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Acquire takes a slot, blocking until one is free or the context ends.
// The returned release function is idempotent.
func (p *Pool) Acquire(ctx context.Context) (func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("connection pool acquire: %w", err)
	}
	released := false
	return func() {
		if !released {
			released = true
			p.sem.Release(1)
		}
	}, nil
}

// With runs fn while holding a slot.
func (p *Pool) With(ctx context.Context, fn func() error) error {
	release, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Size returns the configured pool size.
func (p *Pool) Size() int {
	return int(p.size)
}

// NewTransport returns an http.Transport tuned to the pool size, so the
// kernel-level connection count tracks the request-level bound.
func NewTransport(poolSize int) *http.Transport {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &http.Transport{
		MaxConnsPerHost:     poolSize,
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     90 * time.Second,
	}
}
