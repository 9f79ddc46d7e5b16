// Package closingclient makes restface.Client.Close cancel calls in flight.
package closingclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/starius/restface"
)

// ErrClosing is returned by Do after Close was called.
var ErrClosing = errors.New("restface client is closing")

type ClosingClient struct {
	impl restface.HttpClient

	mu      sync.Mutex
	closing bool
	cancels map[uint64]context.CancelFunc
	nextKey uint64

	wg sync.WaitGroup
}

func New(impl restface.HttpClient) *ClosingClient {
	return &ClosingClient{
		impl:    impl,
		cancels: make(map[uint64]context.CancelFunc),
	}
}

func (c *ClosingClient) Do(req *http.Request) (*http.Response, error) {
	key, ctx, err := c.register(req.Context())
	if err != nil {
		return nil, err
	}
	defer c.unregister(key)

	return c.impl.Do(req.Clone(ctx))
}

func (c *ClosingClient) register(parent context.Context) (uint64, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return 0, nil, ErrClosing
	}

	// Add(1) and Wait() must not be called in parallel.
	// Add(1) is called under the mutex protecting c.closing.
	c.wg.Add(1)

	ctx, cancel := context.WithCancel(parent)
	key := c.nextKey
	c.nextKey++
	c.cancels[key] = cancel
	return key, ctx, nil
}

func (c *ClosingClient) unregister(key uint64) {
	// The context is not canceled here: the response body is read
	// after Do returns.
	c.mu.Lock()
	delete(c.cancels, key)
	c.mu.Unlock()
	c.wg.Done()
}

func (c *ClosingClient) CloseIdleConnections() {
	c.impl.CloseIdleConnections()
}

// Close cancels requests in flight, waits for them to return and closes
// the underlying client if it implements io.Closer. Later calls of Do
// fail with ErrClosing.
func (c *ClosingClient) Close() error {
	c.mu.Lock()
	if !c.closing {
		c.closing = true
		for _, cancel := range c.cancels {
			cancel()
		}
		c.cancels = nil
	}
	c.mu.Unlock()

	c.impl.CloseIdleConnections()

	// By this point c.closing is true, so calls of Do made after
	// the mutex was released don't call Add(1).
	c.wg.Wait()

	if closer, ok := c.impl.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
