package httpclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(3)

	var active, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.With(context.Background(), func() error {
				cur := atomic.AddInt64(&active, 1)
				for {
					old := atomic.LoadInt64(&peak)
					if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt64(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int64(3), "pool must cap concurrent holders")
}

func TestPoolReleasesOnError(t *testing.T) {
	p := NewPool(1)

	err := p.With(context.Background(), func() error {
		return errors.New("boom")
	})
	assert.Error(t, err)

	// The slot must be free again.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release, err := p.Acquire(ctx)
	require.NoError(t, err, "slot leaked by failed operation")
	release()
}

func TestPoolReleaseIdempotent(t *testing.T) {
	p := NewPool(1)

	release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release() // second call must not over-release

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := p.Acquire(ctx)
	require.NoError(t, err)
	r2()
}

func TestPoolAcquireHonorsContext(t *testing.T) {
	p := NewPool(1)

	release, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.Error(t, err, "acquire on a full pool must fail when the context ends")
}

func TestPoolDefaultSize(t *testing.T) {
	assert.Equal(t, DefaultPoolSize, NewPool(0).Size())
	assert.Equal(t, DefaultPoolSize, NewPool(-1).Size())
	assert.Equal(t, 4, NewPool(4).Size())
}

func TestNewTransportTracksPoolSize(t *testing.T) {
	tr := NewTransport(7)
	assert.Equal(t, 7, tr.MaxConnsPerHost)
	assert.Equal(t, 7, tr.MaxIdleConnsPerHost)
}
