package restface

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
)

var (
	// ErrNilArgument is returned when a URL or body argument is nil.
	ErrNilArgument = errors.New("argument is nil")

	// ErrIgnoredMethod is returned by methods declared with Ignore.
	ErrIgnoredMethod = errors.New("method is not handled by restface")
)

// BuildError is returned by NewClient when the API declaration is invalid.
type BuildError struct {
	// Key of the method, empty for interface level problems.
	Key string
	Err error
}

func (e *BuildError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("bad API declaration: %v", e.Err)
	}
	return fmt.Sprintf("bad API declaration of %s: %v", e.Key, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErrorf(key, format string, args ...interface{}) *BuildError {
	return &BuildError{Key: key, Err: fmt.Errorf(format, args...)}
}

// EncodeError is returned when a request body or a query map can not be
// encoded.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode request: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a response can not be decoded.
type DecodeError struct {
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response with HTTP status %d: %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError is a failure of HttpClient.Do. It is retried.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError is an HTTP response with error status converted by
// the default ErrorDecoder.
type ResponseError struct {
	MethodKey  string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// Message is the "error" field of a JSON error message, if the body
	// is one.
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: API returned error with HTTP status %s: %s", e.MethodKey, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: API returned error with HTTP status %s", e.MethodKey, e.Status)
}

// HttpCode returns HTTP status of the response.
func (e *ResponseError) HttpCode() int {
	return e.StatusCode
}

// Code returns gRPC code corresponding to HTTP status of the response.
func (e *ResponseError) Code() codes.Code {
	if code, has := statusToCode[e.StatusCode]; has {
		return code
	}
	switch {
	case e.StatusCode >= 500:
		return codes.Internal
	case e.StatusCode >= 400:
		return codes.FailedPrecondition
	}
	return codes.Unknown
}

// statusToCode inverts runtime.HTTPStatusFromCode. When several codes map
// to the same status, the first code in the list wins.
var statusToCode = func() map[int]codes.Code {
	preferred := []codes.Code{
		codes.OK,
		codes.InvalidArgument,
		codes.Unauthenticated,
		codes.PermissionDenied,
		codes.NotFound,
		codes.AlreadyExists,
		codes.ResourceExhausted,
		codes.Canceled,
		codes.Internal,
		codes.Unimplemented,
		codes.Unavailable,
		codes.DeadlineExceeded,
	}
	m := make(map[int]codes.Code, len(preferred))
	for _, code := range preferred {
		status := runtime.HTTPStatusFromCode(code)
		if _, has := m[status]; !has {
			m[status] = code
		}
	}
	return m
}()

// RetryableError marks an error after which the call can be repeated.
// ErrorDecoder and Decoder return it to request a retry.
type RetryableError struct {
	Err error

	// RetryAfter is the earliest time of the next attempt, if known.
	RetryAfter time.Time
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func isRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// PropagationPolicy controls which errors reach the caller.
type PropagationPolicy int

const (
	// PropagateWrapped returns errors as produced by the pipeline:
	// *TransportError, *EncodeError, *DecodeError, *RetryableError and
	// whatever ErrorDecoder returned.
	PropagateWrapped PropagationPolicy = iota

	// PropagateUnwrapped strips one level of restface wrappers and
	// returns the cause.
	PropagateUnwrapped
)

func (p PropagationPolicy) apply(err error) error {
	if p != PropagateUnwrapped {
		return err
	}
	switch e := err.(type) {
	case *TransportError:
		return e.Err
	case *EncodeError:
		return e.Err
	case *DecodeError:
		return e.Err
	case *RetryableError:
		return e.Err
	}
	return err
}
