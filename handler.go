package restface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// invocationHandler executes one method of the interface. argv holds all
// arguments of the method, context included. The result is nil for
// methods returning only error.
type invocationHandler interface {
	Invoke(ctx context.Context, argv []interface{}) (interface{}, error)
}

// methodHandler sends a method over HTTP. It is created once per method
// and keeps no per-call state.
type methodHandler struct {
	descriptor   *MethodDescriptor
	builder      *templateBuilder
	client       HttpClient
	decoder      Decoder
	errorDecoder ErrorDecoder
	interceptors []RequestInterceptor
	newRetryer   func() Retryer
	errorf       func(format string, args ...interface{})

	maxBody               int64
	errorStatusThreshold  int
	decode404             bool
	doNotCloseAfterDecode bool
	propagation           PropagationPolicy
}

func newMethodHandler(d *MethodDescriptor, builder *templateBuilder, client HttpClient, config *Config) *methodHandler {
	return &methodHandler{
		descriptor:            d,
		builder:               builder,
		client:                client,
		decoder:               config.Decoder,
		errorDecoder:          config.ErrorDecoder,
		interceptors:          config.Interceptors,
		newRetryer:            config.NewRetryer,
		errorf:                config.errorf,
		maxBody:               config.maxBody,
		errorStatusThreshold:  config.ErrorStatusThreshold,
		decode404:             config.Decode404,
		doNotCloseAfterDecode: config.DoNotCloseAfterDecode,
		propagation:           config.Propagation,
	}
}

func (h *methodHandler) Invoke(ctx context.Context, argv []interface{}) (interface{}, error) {
	t, err := h.builder.create(argv)
	if err != nil {
		return nil, h.propagation.apply(err)
	}
	for _, interceptor := range h.interceptors {
		if err := interceptor.Apply(t); err != nil {
			return nil, fmt.Errorf("%s: request interceptor failed: %w", h.descriptor.key, err)
		}
	}

	retryer := h.newRetryer()
	for {
		result, err := h.executeAndDecode(ctx, t)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) || !retryer.Retry(ctx, err) {
			return nil, h.propagation.apply(err)
		}
		h.errorf("%s: retrying after error: %v", h.descriptor.key, err)
	}
}

func (h *methodHandler) executeAndDecode(ctx context.Context, t *Template) (result interface{}, err error) {
	// The request is rebuilt every attempt, so the body is sent again.
	req, err := t.Request(ctx)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	res, err := h.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	if h.maxBody > 0 {
		res.Body = http.MaxBytesReader(nil, res.Body, h.maxBody)
	}

	closeBody := true
	defer func() {
		if !closeBody {
			return
		}
		if err := res.Body.Close(); err != nil {
			h.errorf("failed to close resource: %v", err)
		}
	}()

	returnType := h.descriptor.returnType

	if res.StatusCode >= h.errorStatusThreshold {
		if res.StatusCode == http.StatusNotFound && h.decode404 && returnType != nil {
			return reflect.Zero(returnType).Interface(), nil
		}
		return nil, h.errorDecoder.Decode(h.descriptor.key, res)
	}

	switch {
	case returnType == nil:
		return nil, nil
	case returnType == responseType:
		// The caller owns the body.
		closeBody = false
		return res, nil
	}

	closeBody = !h.doNotCloseAfterDecode
	result, err = h.decoder.Decode(res, returnType)
	if err != nil {
		// Release the response even if the decoder was to close it.
		closeBody = true
		var retryable *RetryableError
		var decodeErr *DecodeError
		if errors.As(err, &retryable) || errors.As(err, &decodeErr) {
			return nil, err
		}
		return nil, &DecodeError{StatusCode: res.StatusCode, Err: err}
	}
	return result, nil
}

// ignoredHandler serves methods declared with Ignore.
type ignoredHandler struct {
	key string
}

func (h ignoredHandler) Invoke(context.Context, []interface{}) (interface{}, error) {
	return nil, fmt.Errorf("%s: %w", h.key, ErrIgnoredMethod)
}

// defaultHandler runs Endpoint.Default locally.
type defaultHandler struct {
	client   *Client
	funcType reflect.Type
	fn       reflect.Value
}

func (h defaultHandler) Invoke(ctx context.Context, argv []interface{}) (interface{}, error) {
	in := make([]reflect.Value, 0, len(argv)+1)
	in = append(in, reflect.ValueOf(h.client))
	for i, arg := range argv {
		if arg == nil {
			in = append(in, reflect.Zero(h.funcType.In(i)))
		} else {
			in = append(in, reflect.ValueOf(arg))
		}
	}
	out := h.fn.Call(in)

	errValue := out[len(out)-1]
	var err error
	if !errValue.IsNil() {
		err = errValue.Interface().(error)
	}
	if len(out) == 1 {
		return nil, err
	}
	return out[0].Interface(), err
}
