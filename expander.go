package restface

import (
	"encoding"
	"fmt"
	"reflect"
)

// Expander converts an argument value to its string form in templates.
type Expander interface {
	Expand(value interface{}) (string, error)
}

// ExpanderFunc adapts a function to Expander.
type ExpanderFunc func(value interface{}) (string, error)

func (f ExpanderFunc) Expand(value interface{}) (string, error) {
	return f(value)
}

// DefaultExpander uses encoding.TextMarshaler if implemented and
// fmt.Sprintf("%v") otherwise. Pointers are dereferenced.
var DefaultExpander Expander = ExpanderFunc(toString)

func toString(value interface{}) (string, error) {
	if marshaler, ok := value.(encoding.TextMarshaler); ok {
		text, err := marshaler.MarshalText()
		if err != nil {
			return "", fmt.Errorf("failed to marshal value of type %T: %w", value, err)
		}
		return string(text), nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		return toString(v.Elem().Interface())
	}
	return fmt.Sprintf("%v", value), nil
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// isList reports whether the value is expanded element by element.
// Byte slices and types implementing encoding.TextMarshaler are scalars.
func isList(value interface{}) bool {
	if _, ok := value.(encoding.TextMarshaler); ok {
		return false
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		return v.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

// expandElements applies the expander to a scalar or to every non-nil
// element of a list.
func expandElements(expander Expander, value interface{}) (varValue, error) {
	if !isList(value) {
		s, err := expander.Expand(value)
		if err != nil {
			return varValue{}, err
		}
		return varValue{values: []string{s}}, nil
	}
	v := reflect.ValueOf(value)
	result := varValue{values: make([]string, 0, v.Len()), list: true}
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i).Interface()
		if isNil(elem) {
			continue
		}
		s, err := expander.Expand(elem)
		if err != nil {
			return varValue{}, err
		}
		result.values = append(result.values, s)
	}
	return result, nil
}
