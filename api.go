package restface

import (
	"context"
	"net/http"
	"net/url"
	"reflect"
)

// API describes an HTTP API bound to a Go interface.
type API struct {
	// Type is the Go interface type, see TypeOf.
	Type reflect.Type

	// Parent describes the interface embedded into Type, if any.
	// Its headers apply to all methods and its endpoints describe the
	// methods it declares. Parent must not have a Parent.
	Parent *API

	// Headers are added to every request, "Name: value" each.
	// Values may contain {name} placeholders.
	Headers []string

	// Endpoints describe methods of the interface.
	Endpoints []Endpoint
}

// Endpoint describes one method of the interface.
type Endpoint struct {
	// Method is the name of the Go method.
	Method string

	// Request is the request line: HTTP method and URI template,
	// e.g. "GET /repos/{owner}/{repo}/contributors?page={page}".
	Request string

	// Headers of the request, "Name: value" each. They override headers
	// with the same name declared in API.
	Headers []string

	// Body is a literal body or, if it contains placeholders, a body
	// template.
	Body string

	// Params describe parameters of the method by position, the context
	// parameter included. Positions without an entry, zero entries and
	// context parameters are not bound by name: *url.URL parameter
	// replaces the base URL, a parameter of any other type is the body.
	Params []Param

	// EncodeSlash keeps "/" inside path variables encoded as %2F.
	EncodeSlash bool

	// Ignore marks a method present in the interface which must not be
	// called. Calling it returns ErrIgnoredMethod.
	Ignore bool

	// Default is a local implementation of the method. It is a function
	// with the method's signature prepended by *Client. Such methods are
	// not sent over the wire.
	Default interface{}
}

// Param describes one parameter of a method.
type Param struct {
	// Names are template variables the parameter provides.
	Names []string

	// Expander converts the value to a string. Default is DefaultExpander.
	Expander Expander

	// QueryMap makes the parameter a source of extra query parameters.
	// It must be a map with string keys or a struct.
	QueryMap bool

	// Encoded means the query map is already URL-encoded.
	Encoded bool

	// HeaderMap makes the parameter a source of extra headers.
	// It must be a map with string keys.
	HeaderMap bool
}

// Named binds the parameter to template variables.
func Named(names ...string) Param {
	return Param{Names: names}
}

// WithExpander returns a copy of the parameter using the expander.
func (p Param) WithExpander(e Expander) Param {
	p.Expander = e
	return p
}

// QueryMap binds the parameter to extra query parameters.
func QueryMap() Param {
	return Param{QueryMap: true}
}

// EncodedQueryMap is QueryMap whose keys and values are already encoded.
func EncodedQueryMap() Param {
	return Param{QueryMap: true, Encoded: true}
}

// HeaderMap binds the parameter to extra headers.
func HeaderMap() Param {
	return Param{HeaderMap: true}
}

func (p Param) isZero() bool {
	return len(p.Names) == 0 && p.Expander == nil && !p.QueryMap && !p.Encoded && !p.HeaderMap
}

// TypeOf returns reflect.Type of interface I.
func TypeOf[I any]() reflect.Type {
	return reflect.TypeOf((*I)(nil)).Elem()
}

var (
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	urlType      = reflect.TypeOf((*url.URL)(nil))
	responseType = reflect.TypeOf((*http.Response)(nil))
	clientType   = reflect.TypeOf((*Client)(nil))
)

func (a *API) endpoint(method string) (Endpoint, bool) {
	if a == nil {
		return Endpoint{}, false
	}
	for _, e := range a.Endpoints {
		if e.Method == method {
			return e, true
		}
	}
	return Endpoint{}, false
}

// findEndpoint looks for the declaration of a method in the API and its
// parent.
func (a *API) findEndpoint(method string) (Endpoint, bool) {
	if e, ok := a.endpoint(method); ok {
		return e, true
	}
	return a.Parent.endpoint(method)
}
