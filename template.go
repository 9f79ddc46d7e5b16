package restface

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Template is the shape of one HTTP request before it is sent.
//
// A skeleton template is built for every method when the client is
// created and is never modified afterwards. Each call works on a Clone of
// the skeleton: the clone is resolved against the call arguments, then
// passed to encoders and interceptors, then turned into an *http.Request.
//
// Before resolution the path, query values, header values and body
// template contain {name} placeholders. After resolution query keys and
// values are stored URL-encoded.
type Template struct {
	method       string
	target       string
	path         string
	query        orderedValues
	headers      orderedValues
	body         []byte
	bodyTemplate string
	encodeSlash  bool
	descriptor   *MethodDescriptor
	resolved     bool
}

func newTemplate() *Template {
	return &Template{
		query:   newOrderedValues(),
		headers: newOrderedValues(),
	}
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	c := *t
	c.query = t.query.clone()
	c.headers = t.headers.clone()
	if t.body != nil {
		c.body = append([]byte{}, t.body...)
	}
	return &c
}

// Method returns HTTP method.
func (t *Template) Method() string {
	return t.method
}

// Target returns base URL the path is appended to.
func (t *Template) Target() string {
	return t.target
}

// SetTarget replaces the base URL.
func (t *Template) SetTarget(target string) {
	t.target = target
}

// Path returns the path, expanded if the template is resolved.
func (t *Template) Path() string {
	return t.path
}

// Descriptor returns the method the template belongs to.
func (t *Template) Descriptor() *MethodDescriptor {
	return t.descriptor
}

// Resolved reports whether placeholders were substituted.
func (t *Template) Resolved() bool {
	return t.resolved
}

// setURI splits a URI template into the path and query templates.
func (t *Template) setURI(uri string) {
	path, rawQuery, _ := strings.Cut(uri, "?")
	t.path = path
	if rawQuery == "" {
		return
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, hasValue := strings.Cut(pair, "=")
		if hasValue {
			t.query.add(key, value)
		} else {
			t.query.set(key, nil)
		}
	}
}

// Header returns values of the header.
func (t *Template) Header(name string) []string {
	return t.headers.get(http.CanonicalHeaderKey(name))
}

// Headers returns a copy of all headers.
func (t *Template) Headers() http.Header {
	h := make(http.Header, len(t.headers.keys))
	for _, k := range t.headers.keys {
		h[k] = append([]string{}, t.headers.get(k)...)
	}
	return h
}

// SetHeader replaces values of the header. Calling it without values
// removes the header.
func (t *Template) SetHeader(name string, values ...string) {
	name = http.CanonicalHeaderKey(name)
	if len(values) == 0 {
		t.headers.del(name)
		return
	}
	t.headers.set(name, values)
}

// AddHeader appends values to the header.
func (t *Template) AddHeader(name string, values ...string) {
	t.headers.add(http.CanonicalHeaderKey(name), values...)
}

// RemoveHeader removes the header.
func (t *Template) RemoveHeader(name string) {
	t.headers.del(http.CanonicalHeaderKey(name))
}

// Query returns URL-encoded values of the query parameter.
func (t *Template) Query(name string) []string {
	return t.query.get(encodeComponent(name))
}

// SetQuery replaces values of the query parameter. Name and values are
// URL-encoded. Calling it without values leaves the key without a value.
func (t *Template) SetQuery(name string, values ...string) {
	t.setQuery(name, values, false)
}

// RemoveQuery removes the query parameter.
func (t *Template) RemoveQuery(name string) {
	t.query.del(encodeComponent(name))
}

func (t *Template) setQuery(name string, values []string, encoded bool) {
	if !encoded {
		name = encodeComponent(name)
		escaped := make([]string, 0, len(values))
		for _, v := range values {
			escaped = append(escaped, encodeComponent(v))
		}
		values = escaped
	}
	t.query.set(name, values)
}

// QueryString returns the encoded query: keys in insertion order, a key
// without values is emitted alone.
func (t *Template) QueryString() string {
	var b strings.Builder
	for _, k := range t.query.keys {
		values := t.query.get(k)
		if len(values) == 0 {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			continue
		}
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

// Body returns the request body.
func (t *Template) Body() []byte {
	return t.body
}

// SetBody replaces the request body. It takes precedence over the body
// template.
func (t *Template) SetBody(body []byte) {
	t.body = body
}

// BodyTemplate returns the unexpanded body template, if any.
func (t *Template) BodyTemplate() string {
	return t.bodyTemplate
}

// URL returns the full URL: target, path and query.
func (t *Template) URL() string {
	base := strings.TrimSuffix(t.target, "/")
	path := t.path
	if base != "" && path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + path
	if q := t.QueryString(); q != "" {
		u += "?" + q
	}
	return u
}

// hasVariable reports whether the name is used by any template part.
func (t *Template) hasVariable(name string) (bool, error) {
	sources := []string{t.path, t.bodyTemplate}
	for _, k := range t.query.keys {
		sources = append(sources, t.query.get(k)...)
	}
	for _, k := range t.headers.keys {
		sources = append(sources, t.headers.get(k)...)
	}
	for _, s := range sources {
		e, err := compile(s)
		if err != nil {
			return false, err
		}
		for _, n := range e.names {
			if n == name {
				return true, nil
			}
		}
	}
	return false, nil
}

// resolve substitutes variables into path, query, headers and body
// template. It must be called on a clone of the skeleton.
func (t *Template) resolve(vars *variables) error {
	pathExpr, err := compile(t.path)
	if err != nil {
		return err
	}
	t.path, _ = pathExpr.expand(vars, pathEncoder(t.encodeSlash))

	query, err := resolveValues(t.query, vars, encodeComponent)
	if err != nil {
		return err
	}
	t.query = query

	headers, err := resolveValues(t.headers, vars, identity)
	if err != nil {
		return err
	}
	t.headers = headers

	if t.body == nil && t.bodyTemplate != "" {
		bodyExpr, err := compile(t.bodyTemplate)
		if err != nil {
			return err
		}
		body, _ := bodyExpr.expand(vars, identity)
		t.body = []byte(body)
	}

	t.resolved = true
	return nil
}

// resolveValues expands value templates of query or headers. Keys whose
// templated values all expanded to nothing are dropped.
func resolveValues(src orderedValues, vars *variables, encode func(string) string) (orderedValues, error) {
	dst := newOrderedValues()
	for _, key := range src.keys {
		raw := src.get(key)
		if len(raw) == 0 {
			dst.set(key, nil)
			continue
		}
		templated := false
		var values []string
		for _, r := range raw {
			e, err := compile(r)
			if err != nil {
				return dst, err
			}
			if !e.literal() {
				templated = true
			}
			if expanded, ok := e.expandValues(vars, encode); ok {
				values = append(values, expanded...)
			}
		}
		if templated && len(values) == 0 {
			continue
		}
		dst.set(key, values)
	}
	return dst, nil
}

// Request materializes the resolved template.
func (t *Template) Request(ctx context.Context) (*http.Request, error) {
	if !t.resolved {
		return nil, fmt.Errorf("template %s %s is not resolved", t.method, t.path)
	}
	rawURL := t.URL()
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad request URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("request URL %q is not absolute: set base URL of the client or pass *url.URL argument", rawURL)
	}
	var body io.Reader
	if t.body != nil {
		body = bytes.NewReader(t.body)
	}
	req, err := http.NewRequestWithContext(ctx, t.method, rawURL, body)
	if err != nil {
		return nil, err
	}
	for _, k := range t.headers.keys {
		for _, v := range t.headers.get(k) {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}
