// Package debugclient logs requests sent by restface as curl commands and
// responses as raw HTTP.
package debugclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"sync"
	"sync/atomic"

	"github.com/starius/restface"
	"moul.io/http2curl"
)

type DebugClient struct {
	impl restface.HttpClient
	n    uint64

	mu  sync.Mutex
	log io.Writer

	redacted   []string
	dumpBodies bool
}

type Option func(*DebugClient)

// Redact replaces values of the headers with "***" in the log.
func Redact(headers ...string) Option {
	return func(c *DebugClient) {
		for _, h := range headers {
			c.redacted = append(c.redacted, http.CanonicalHeaderKey(h))
		}
	}
}

// WithoutBodies omits response bodies from the log.
func WithoutBodies() Option {
	return func(c *DebugClient) {
		c.dumpBodies = false
	}
}

func New(impl restface.HttpClient, log io.Writer, opts ...Option) *DebugClient {
	c := &DebugClient{
		impl:       impl,
		log:        log,
		dumpBodies: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *DebugClient) Do(req *http.Request) (*http.Response, error) {
	n := atomic.AddUint64(&c.n, 1)

	logged := c.redact(req)
	curl, err := http2curl.GetCurlCommand(logged)
	if err != nil {
		return nil, fmt.Errorf("http2curl.GetCurlCommand failed for %d: %w", n, err)
	}
	// http2curl consumes the body and puts a copy into the request it got.
	req.Body = logged.Body
	if err := c.printf("=== client request %d ===\n$ %s\n=== end of client request %d ===\n", n, curl, n); err != nil {
		return nil, fmt.Errorf("failed to log request %d: %w", n, err)
	}

	res, err := c.impl.Do(req)
	if err != nil {
		if err2 := c.printf("=== client error %d ===\n%v\n=== end of client error %d ===\n", n, err, n); err2 != nil {
			return nil, fmt.Errorf("failed to log error %d: %w", n, err2)
		}
		return nil, err
	}

	resDump, err := httputil.DumpResponse(res, c.dumpBodies)
	if err != nil {
		res.Body.Close()
		return nil, fmt.Errorf("httputil.DumpResponse failed for %d: %w", n, err)
	}
	if err := c.printf("=== server response %d ===\n%s\n=== end of server response %d ===\n", n, string(resDump), n); err != nil {
		res.Body.Close()
		return nil, fmt.Errorf("failed to log response %d: %w", n, err)
	}

	return res, nil
}

// redact returns a copy of the request with redacted headers.
func (c *DebugClient) redact(req *http.Request) *http.Request {
	if len(c.redacted) == 0 {
		return req
	}
	clone := req.Clone(req.Context())
	for _, h := range c.redacted {
		if _, has := clone.Header[h]; has {
			clone.Header[h] = []string{"***"}
		}
	}
	return clone
}

// printf writes the whole record at once, so records of parallel
// requests don't interleave.
func (c *DebugClient) printf(format string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.log, format, args...)
	return err
}

func (c *DebugClient) CloseIdleConnections() {
	c.impl.CloseIdleConnections()
}

func (c *DebugClient) Close() error {
	if closer, ok := c.impl.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
