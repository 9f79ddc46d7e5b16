package restface

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
)

// HttpClient sends HTTP requests. *http.Client implements it.
type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

// Client is used on client-side to call remote methods provided by the API.
// It is safe for concurrent use.
type Client struct {
	api         *API
	client      HttpClient
	baseURL     string
	errorf      func(format string, args ...interface{})
	descriptors []*MethodDescriptor
	methods     map[string]boundMethod
}

type boundMethod struct {
	funcType reflect.Type
	handler  invocationHandler
}

// NewClient creates new instance of client.
//
// Every method of the interface must be declared in api: sent over HTTP,
// ignored or implemented locally by Endpoint.Default. Paths of methods
// are appended to baseURL, unless a method takes *url.URL argument.
func NewClient(api *API, baseURL string, opts ...Option) (*Client, error) {
	config := NewDefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.retryPolicy != nil {
		if err := config.validate.Struct(*config.retryPolicy); err != nil {
			return nil, fmt.Errorf("bad retry policy: %w", err)
		}
	}

	var client HttpClient = &http.Client{}
	if config.client != nil {
		client = config.client
	}

	descriptors, err := config.Contract.Parse(api)
	if err != nil {
		return nil, err
	}

	c := &Client{
		api:         api,
		client:      client,
		baseURL:     baseURL,
		errorf:      config.errorf,
		descriptors: descriptors,
		methods:     make(map[string]boundMethod, api.Type.NumMethod()),
	}

	byKey := make(map[string]invocationHandler, len(descriptors))
	for _, d := range descriptors {
		if d.ignored {
			byKey[d.key] = ignoredHandler{key: d.key}
			continue
		}
		builder := newTemplateBuilder(d, baseURL, config)
		byKey[d.key] = newMethodHandler(d, builder, client, config)
	}

	for i := 0; i < api.Type.NumMethod(); i++ {
		method := api.Type.Method(i)
		bound := boundMethod{funcType: method.Type}
		if e, has := api.findEndpoint(method.Name); has && e.Default != nil {
			h, err := newDefaultHandler(c, api.Type, method, e.Default)
			if err != nil {
				return nil, err
			}
			bound.handler = h
		} else {
			key := methodKey(api.Type, method)
			h, has := byKey[key]
			if !has {
				return nil, buildErrorf(key, "contract returned no descriptor for the method")
			}
			bound.handler = h
		}
		c.methods[method.Name] = bound
	}

	return c, nil
}

// MustNewClient is like NewClient but panics on error.
func MustNewClient(api *API, baseURL string, opts ...Option) *Client {
	c, err := NewClient(api, baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func newDefaultHandler(c *Client, apiType reflect.Type, method reflect.Method, fn interface{}) (invocationHandler, error) {
	key := methodKey(apiType, method)
	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()
	if fnType.Kind() != reflect.Func {
		return nil, buildErrorf(key, "Default is %s, want func", fnType)
	}
	mt := method.Type
	ok := fnType.NumIn() == mt.NumIn()+1 && fnType.In(0) == clientType &&
		fnType.NumOut() == mt.NumOut() && !fnType.IsVariadic() && !mt.IsVariadic()
	for i := 0; ok && i < mt.NumIn(); i++ {
		ok = fnType.In(i+1) == mt.In(i)
	}
	for i := 0; ok && i < mt.NumOut(); i++ {
		ok = fnType.Out(i) == mt.Out(i)
	}
	if !ok || mt.NumOut() == 0 || mt.Out(mt.NumOut()-1) != errorType {
		return nil, buildErrorf(key, "Default must be %s prefixed by *restface.Client, got %s", mt, fnType)
	}
	return defaultHandler{client: c, funcType: mt, fn: fnValue}, nil
}

// Invoke calls the method by name. args are arguments of the method
// except context.Context parameters, which receive ctx.
// The result is nil for methods returning only error.
func (c *Client) Invoke(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	m, has := c.methods[method]
	if !has {
		return nil, fmt.Errorf("%s has no method %s", c.api.Type.Name(), method)
	}
	ft := m.funcType
	argv := make([]interface{}, ft.NumIn())
	j := 0
	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i) == contextType {
			argv[i] = ctx
			continue
		}
		if j >= len(args) {
			return nil, fmt.Errorf("%s.%s: too few arguments: %d", c.api.Type.Name(), method, len(args))
		}
		arg := args[j]
		j++
		if arg != nil && !reflect.TypeOf(arg).AssignableTo(ft.In(i)) {
			return nil, fmt.Errorf("%s.%s: argument %d is %T, want %s", c.api.Type.Name(), method, i, arg, ft.In(i))
		}
		argv[i] = arg
	}
	if j != len(args) {
		return nil, fmt.Errorf("%s.%s: too many arguments: %d", c.api.Type.Name(), method, len(args))
	}
	return m.handler.Invoke(ctx, argv)
}

// Call invokes the method and converts the result to T.
func Call[T any](ctx context.Context, c *Client, method string, args ...interface{}) (T, error) {
	var zero T
	result, err := c.Invoke(ctx, method, args...)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%s.%s returned %T, not %T", c.api.Type.Name(), method, result, zero)
	}
	return typed, nil
}

// Bind fills func fields of the struct pointed to by ptr with
// implementations calling methods of the same name. Each field must have
// the type of the method. Fields with no matching method are left as is.
func (c *Client) Bind(ptr interface{}) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("Bind wants pointer to struct, got %T", ptr)
	}
	s := v.Elem()
	for i := 0; i < s.NumField(); i++ {
		field := s.Type().Field(i)
		m, has := c.methods[field.Name]
		if !has || field.Type.Kind() != reflect.Func {
			continue
		}
		if field.Type != m.funcType {
			return fmt.Errorf("field %s is %s, want %s", field.Name, field.Type, m.funcType)
		}
		if !s.Field(i).CanSet() {
			return fmt.Errorf("field %s is not exported", field.Name)
		}
		s.Field(i).Set(reflect.MakeFunc(m.funcType, m.call))
	}
	return nil
}

func (m boundMethod) call(in []reflect.Value) []reflect.Value {
	ctx := context.Background()
	argv := make([]interface{}, len(in))
	for i, arg := range in {
		if m.funcType.In(i) == contextType && !arg.IsNil() {
			ctx = arg.Interface().(context.Context)
		}
		argv[i] = arg.Interface()
	}
	result, err := m.handler.Invoke(ctx, argv)

	errValue := reflect.Zero(errorType)
	if err != nil {
		errValue = reflect.ValueOf(&err).Elem()
	}
	if m.funcType.NumOut() == 1 {
		return []reflect.Value{errValue}
	}
	resValue := reflect.New(m.funcType.Out(0)).Elem()
	if result != nil {
		resValue.Set(reflect.ValueOf(result))
	}
	return []reflect.Value{resValue, errValue}
}

// Descriptors returns descriptors of methods sent over HTTP or ignored.
func (c *Client) Descriptors() []*MethodDescriptor {
	return append([]*MethodDescriptor(nil), c.descriptors...)
}

// Close closes idle connections of the HTTP client and the client itself
// if it implements io.Closer.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()

	if closer, ok := c.client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}

	return nil
}
