package restface

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"
)

// Contract turns an API declaration into method descriptors.
type Contract interface {
	// Parse returns one descriptor per method sent over the wire.
	// Methods with Default are skipped.
	Parse(api *API) ([]*MethodDescriptor, error)
}

// DefaultContract is the Contract used unless CustomContract is passed.
type DefaultContract struct{}

var requestLineRe = regexp.MustCompile(`^([A-Z]+)[ ]*(.*)$`)

var httpMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

func (c DefaultContract) Parse(api *API) ([]*MethodDescriptor, error) {
	if err := validateAPI(api); err != nil {
		return nil, err
	}
	apiType := api.Type

	// Every endpoint must describe a method and only one endpoint may
	// describe a method.
	declared := make(map[string]bool)
	for _, a := range []*API{api.Parent, api} {
		if a == nil {
			continue
		}
		for _, e := range a.Endpoints {
			method, has := a.Type.MethodByName(e.Method)
			if !has {
				return nil, buildErrorf("", "endpoint %q: interface %s has no such method", e.Method, a.Type.Name())
			}
			key := methodKey(apiType, method)
			if declared[key] {
				return nil, buildErrorf(key, "overrides unsupported: the method is declared more than once")
			}
			declared[key] = true
		}
	}

	result := make([]*MethodDescriptor, 0, apiType.NumMethod())
	for i := 0; i < apiType.NumMethod(); i++ {
		method := apiType.Method(i)
		endpoint, has := api.findEndpoint(method.Name)
		if has && endpoint.Default != nil {
			continue
		}
		d, err := c.parseMethod(api, method, endpoint, has)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

func validateAPI(api *API) error {
	if api == nil || api.Type == nil {
		return buildErrorf("", "API type is not set")
	}
	if err := validateInterface(api.Type); err != nil {
		return err
	}
	if api.Parent == nil {
		return nil
	}
	if api.Parent.Type == nil {
		return buildErrorf("", "type of parent of %s is not set", api.Type.Name())
	}
	if err := validateInterface(api.Parent.Type); err != nil {
		return err
	}
	if api.Parent.Parent != nil {
		return buildErrorf("", "only single-level inheritance supported: %s", api.Type.Name())
	}
	if !api.Type.Implements(api.Parent.Type) {
		return buildErrorf("", "%s does not embed its parent %s", api.Type.Name(), api.Parent.Type.Name())
	}
	return nil
}

func validateInterface(t reflect.Type) error {
	if t.Kind() != reflect.Interface {
		return buildErrorf("", "%s is %s, want interface", t, t.Kind())
	}
	// Instantiated generic types are named like "Store[int]".
	if strings.Contains(t.Name(), "[") {
		return buildErrorf("", "parameterized types unsupported: %s", t.Name())
	}
	return nil
}

func (c DefaultContract) parseMethod(api *API, method reflect.Method, e Endpoint, declared bool) (*MethodDescriptor, error) {
	d := newMethodDescriptor(api.Type, method)

	if method.PkgPath != "" {
		return nil, buildErrorf(d.key, "unexported methods unsupported")
	}
	if err := validateResults(d); err != nil {
		return nil, err
	}

	// Type level declarations: parent first, so that the interface itself
	// overrides headers of the parent.
	if api.Parent != nil {
		if err := applyHeaders(d, api.Parent.Headers, "type "+api.Parent.Type.Name()); err != nil {
			return nil, err
		}
	}
	if err := applyHeaders(d, api.Headers, "type "+api.Type.Name()); err != nil {
		return nil, err
	}

	// Method level declarations.
	if e.Ignore {
		d.ignored = true
		return d, nil
	}
	if !declared || e.Request == "" {
		return nil, buildErrorf(d.key, "method is not declared with HTTP method (e.g. GET, POST)")
	}
	match := requestLineRe.FindStringSubmatch(e.Request)
	if match == nil || !httpMethods[match[1]] {
		return nil, buildErrorf(d.key, "request line %q doesn't start with an HTTP method", e.Request)
	}
	d.template.method = match[1]
	d.template.setURI(strings.TrimSpace(match[2]))
	d.template.encodeSlash = e.EncodeSlash
	if err := applyHeaders(d, e.Headers, "method"); err != nil {
		return nil, err
	}
	if strings.Contains(e.Body, "{") {
		d.template.bodyTemplate = e.Body
	} else if e.Body != "" {
		d.template.body = []byte(e.Body)
	}

	// Parameter level declarations.
	if err := c.parseParams(d, e.Params); err != nil {
		return nil, err
	}
	return d, nil
}

func validateResults(d *MethodDescriptor) error {
	ft := d.funcType
	if ft.NumOut() < 1 || ft.NumOut() > 2 || ft.Out(ft.NumOut()-1) != errorType {
		return buildErrorf(d.key, "method must return error or (T, error)")
	}
	return nil
}

func applyHeaders(d *MethodDescriptor, lines []string, where string) error {
	parsed := newOrderedValues()
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return buildErrorf(d.key, "header %q declared on %s must be in form 'Name: value'", line, where)
		}
		if _, err := compile(value); err != nil {
			return &BuildError{Key: d.key, Err: err}
		}
		parsed.add(http.CanonicalHeaderKey(name), strings.TrimSpace(value))
	}
	for _, k := range parsed.keys {
		d.template.headers.set(k, parsed.get(k))
	}
	return nil
}

func (c DefaultContract) parseParams(d *MethodDescriptor, params []Param) error {
	ft := d.funcType
	if len(params) > ft.NumIn() {
		return buildErrorf(d.key, "%d params declared, but the method has %d parameters", len(params), ft.NumIn())
	}

	for i := 0; i < ft.NumIn(); i++ {
		var p Param
		if i < len(params) {
			p = params[i]
		}
		paramType := ft.In(i)

		if paramType == contextType {
			if !p.isZero() {
				return buildErrorf(d.key, "context parameter %d can not be bound", i)
			}
			d.skipped.Add(i)
			continue
		}

		if p.isZero() {
			if paramType == urlType {
				d.urlIndex = i
				continue
			}
			if d.bodyIndex != -1 {
				return buildErrorf(d.key, "method has too many body parameters: %d and %d", d.bodyIndex, i)
			}
			d.bodyIndex = i
			d.bodyType = paramType
			continue
		}

		roles := 0
		for _, has := range []bool{len(p.Names) != 0, p.QueryMap, p.HeaderMap} {
			if has {
				roles++
			}
		}
		if roles != 1 {
			return buildErrorf(d.key, "parameter %d must have exactly one of: names, query map, header map", i)
		}
		if p.Encoded && !p.QueryMap {
			return buildErrorf(d.key, "parameter %d: Encoded is valid only for query maps", i)
		}
		if p.Expander != nil && len(p.Names) == 0 {
			return buildErrorf(d.key, "parameter %d: Expander is valid only for named parameters", i)
		}

		switch {
		case p.QueryMap:
			if d.queryMapIndex != -1 {
				return buildErrorf(d.key, "query map is declared on multiple parameters")
			}
			if err := checkQueryMapType(d, i, paramType); err != nil {
				return err
			}
			d.queryMapIndex = i
			d.queryMapEncoded = p.Encoded

		case p.HeaderMap:
			if d.headerMapIndex != -1 {
				return buildErrorf(d.key, "header map is declared on multiple parameters")
			}
			if paramType.Kind() != reflect.Map || paramType.Key().Kind() != reflect.String {
				return buildErrorf(d.key, "header map parameter %d must be a map with string keys, got %s", i, paramType)
			}
			d.headerMapIndex = i

		default:
			for _, name := range p.Names {
				if name == "" {
					return buildErrorf(d.key, "parameter %d has an empty name", i)
				}
				d.indexToName[i] = append(d.indexToName[i], name)
				used, err := d.template.hasVariable(name)
				if err != nil {
					return &BuildError{Key: d.key, Err: err}
				}
				if !used {
					d.addFormParam(name)
				}
			}
			if p.Expander != nil {
				d.indexToExpander[i] = p.Expander
			}
		}
	}

	if d.bodyIndex != -1 && len(d.formParams) != 0 {
		return buildErrorf(d.key, "body parameters can not be used with form parameters %v", d.formParams)
	}
	for i := 0; i < ft.NumIn(); i++ {
		if !d.alreadyProcessed(i) {
			return buildErrorf(d.key, "parameter %d has no role", i)
		}
	}
	return nil
}

func checkQueryMapType(d *MethodDescriptor, i int, t reflect.Type) error {
	switch t.Kind() {
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return buildErrorf(d.key, "query map key must be a string, got %s", t.Key())
		}
		return nil
	case reflect.Struct, reflect.Interface:
		return nil
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct {
			return nil
		}
	}
	return buildErrorf(d.key, "query map parameter %d must be a map with string keys or a struct, got %s", i, t)
}
