package restface

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"
)

type builderKind int

const (
	defaultBuilder builderKind = iota
	formBuilder
	bodyBuilder
)

func (k builderKind) String() string {
	switch k {
	case formBuilder:
		return "form"
	case bodyBuilder:
		return "body"
	}
	return "default"
}

// templateBuilder turns call arguments into a resolved Template.
// It is created once per method and shared by all calls.
type templateBuilder struct {
	kind       builderKind
	descriptor *MethodDescriptor
	target     string

	encoder         Encoder
	queryMapEncoder QueryMapEncoder
	validate        *validator.Validate
}

func newTemplateBuilder(d *MethodDescriptor, target string, config *Config) *templateBuilder {
	b := &templateBuilder{
		descriptor:      d,
		target:          target,
		encoder:         config.Encoder,
		queryMapEncoder: config.QueryMapEncoder,
	}
	if config.ValidateBodies {
		b.validate = config.validate
	}
	switch {
	case d.bodyIndex != -1:
		b.kind = bodyBuilder
	case len(d.formParams) != 0 && d.template.bodyTemplate == "":
		b.kind = formBuilder
	}
	return b
}

// create builds the request template. argv holds all arguments of the
// method, context included.
func (b *templateBuilder) create(argv []interface{}) (*Template, error) {
	d := b.descriptor
	t := d.template.Clone()
	t.target = b.target

	if d.urlIndex != -1 {
		u, _ := argv[d.urlIndex].(*url.URL)
		if u == nil {
			return nil, fmt.Errorf("URL argument %d: %w", d.urlIndex, ErrNilArgument)
		}
		t.target = u.String()
	}

	vars := newVariables()
	for i := 0; i < len(argv); i++ {
		names, has := d.indexToName[i]
		if !has || isNil(argv[i]) {
			continue
		}
		expander := DefaultExpander
		if e, has := d.indexToExpander[i]; has {
			expander = e
		}
		value, err := expandElements(expander, argv[i])
		if err != nil {
			return nil, &EncodeError{Err: fmt.Errorf("failed to expand parameter %d: %w", i, err)}
		}
		for _, name := range names {
			vars.set(name, value)
		}
	}

	// Only the skeleton is a template. Headers and query parameters set
	// by the encoder are data and are not resolved.
	if err := t.resolve(vars); err != nil {
		return nil, err
	}

	switch b.kind {
	case formBuilder:
		if err := b.encodeForm(vars, t); err != nil {
			return nil, err
		}
	case bodyBuilder:
		if err := b.encodeBody(argv[d.bodyIndex], t); err != nil {
			return nil, err
		}
	}

	if d.queryMapIndex != -1 && !isNil(argv[d.queryMapIndex]) {
		if err := b.addQueryMap(argv[d.queryMapIndex], t); err != nil {
			return nil, &EncodeError{Err: err}
		}
	}
	if d.headerMapIndex != -1 && !isNil(argv[d.headerMapIndex]) {
		if err := addHeaderMap(argv[d.headerMapIndex], t); err != nil {
			return nil, &EncodeError{Err: err}
		}
	}
	return t, nil
}

func (b *templateBuilder) encodeForm(vars *variables, t *Template) error {
	form := make(map[string]interface{}, len(b.descriptor.formParams))
	for _, name := range b.descriptor.formParams {
		value, has := vars.get(name)
		if !has {
			continue
		}
		if value.list {
			form[name] = append([]string(nil), value.values...)
		} else {
			form[name] = value.values[0]
		}
	}
	if err := b.encoder.Encode(form, FormType, t); err != nil {
		return wrapEncodeError(err)
	}
	return nil
}

func (b *templateBuilder) encodeBody(body interface{}, t *Template) error {
	if isNil(body) {
		return &EncodeError{Err: fmt.Errorf("body argument %d: %w", b.descriptor.bodyIndex, ErrNilArgument)}
	}
	if b.validate != nil && isStruct(body) {
		if err := b.validate.Struct(body); err != nil {
			return &EncodeError{Err: err}
		}
	}
	if err := b.encoder.Encode(body, b.descriptor.bodyType, t); err != nil {
		return wrapEncodeError(err)
	}
	return nil
}

func wrapEncodeError(err error) error {
	if _, ok := err.(*EncodeError); ok {
		return err
	}
	return &EncodeError{Err: err}
}

func isStruct(value interface{}) bool {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	return v.Kind() == reflect.Struct
}

// addQueryMap appends query parameters from a map or from a value
// converted by QueryMapEncoder. Entries replace same-named parameters.
// Nil list elements are dropped; a key left without values is sent alone.
func (b *templateBuilder) addQueryMap(arg interface{}, t *Template) error {
	encoded := b.descriptor.queryMapEncoded
	v := reflect.ValueOf(arg)
	if v.Kind() == reflect.Map && v.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("query map key must be a string, got %s", v.Type().Key())
	}
	if v.Kind() != reflect.Map {
		m, err := b.queryMapEncoder.Encode(arg)
		if err != nil {
			return fmt.Errorf("failed to convert query map: %w", err)
		}
		v = reflect.ValueOf(m)
	}

	for _, key := range sortedKeys(v) {
		value := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())).Interface()
		var values []string
		if isList(value) {
			list := reflect.ValueOf(value)
			for i := 0; i < list.Len(); i++ {
				elem := list.Index(i).Interface()
				if isNil(elem) {
					continue
				}
				s, err := toString(elem)
				if err != nil {
					return err
				}
				values = append(values, s)
			}
		} else if !isNil(value) {
			s, err := toString(value)
			if err != nil {
				return err
			}
			values = append(values, s)
		}
		if encoded {
			t.setQuery(key, values, true)
			continue
		}
		name := encodeComponent(key)
		escaped := make([]string, 0, len(values))
		for _, s := range values {
			escaped = append(escaped, encodeComponent(s))
		}
		t.setQuery(name, escaped, true)
	}
	return nil
}

// addHeaderMap sets headers from a map. Values are not encoded. Nil
// elements of lists are dropped, a header left without values is
// removed.
func addHeaderMap(arg interface{}, t *Template) error {
	v := reflect.ValueOf(arg)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("header map must be a map with string keys, got %T", arg)
	}
	for _, key := range sortedKeys(v) {
		value := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())).Interface()
		var values []string
		if isList(value) {
			list := reflect.ValueOf(value)
			for i := 0; i < list.Len(); i++ {
				elem := list.Index(i).Interface()
				if isNil(elem) {
					continue
				}
				s, err := toString(elem)
				if err != nil {
					return err
				}
				values = append(values, s)
			}
		} else if !isNil(value) {
			s, err := toString(value)
			if err != nil {
				return err
			}
			values = append(values, s)
		}
		t.SetHeader(key, values...)
	}
	return nil
}

func sortedKeys(m reflect.Value) []string {
	keys := make([]string, 0, m.Len())
	for _, k := range m.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys
}
