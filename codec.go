package restface

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/starius/restface/internal/shared"
)

// Encoder writes a request body into the template.
type Encoder interface {
	// Encode is called with the body argument and the declared type of
	// the body parameter, or with a map[string]interface{} of form
	// parameters and FormType.
	Encode(value interface{}, bodyType reflect.Type, t *Template) error
}

// Decoder converts a successful response to the return type of a method.
type Decoder interface {
	Decode(res *http.Response, t reflect.Type) (interface{}, error)
}

// ErrorDecoder converts a response with error status to an error.
// Returning *RetryableError asks the client to repeat the call.
type ErrorDecoder interface {
	Decode(methodKey string, res *http.Response) error
}

type EncoderFunc func(value interface{}, bodyType reflect.Type, t *Template) error

func (f EncoderFunc) Encode(value interface{}, bodyType reflect.Type, t *Template) error {
	return f(value, bodyType, t)
}

type DecoderFunc func(res *http.Response, t reflect.Type) (interface{}, error)

func (f DecoderFunc) Decode(res *http.Response, t reflect.Type) (interface{}, error) {
	return f(res, t)
}

type ErrorDecoderFunc func(methodKey string, res *http.Response) error

func (f ErrorDecoderFunc) Decode(methodKey string, res *http.Response) error {
	return f(methodKey, res)
}

// FormType is the body type passed to Encoder for form parameters.
// Values of the map are strings or slices of strings.
var FormType = reflect.TypeOf(map[string]interface{}(nil))

var bytesType = reflect.TypeOf([]byte(nil))

// JsonEncoder encodes bodies as JSON.
//
// Strings and byte slices are sent as is, forms are sent
// URL-encoded. Fields of struct bodies tagged with `header:"name"` or
// `query:"name"` are sent as headers and query parameters instead of
// JSON fields.
type JsonEncoder struct{}

func (JsonEncoder) Encode(value interface{}, bodyType reflect.Type, t *Template) error {
	switch {
	case bodyType == FormType:
		form, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("form is %T, want map[string]interface{}", value)
		}
		values := make(url.Values, len(form))
		for name, v := range form {
			switch v := v.(type) {
			case string:
				values.Add(name, v)
			case []string:
				values[name] = append(values[name], v...)
			default:
				values.Add(name, fmt.Sprintf("%v", v))
			}
		}
		t.SetBody([]byte(values.Encode()))
		setDefaultContentType(t, "application/x-www-form-urlencoded")
		return nil

	case bodyType.Kind() == reflect.String:
		t.SetBody([]byte(reflect.ValueOf(value).String()))
		setDefaultContentType(t, "text/plain; charset=utf-8")
		return nil

	case bodyType == bytesType:
		t.SetBody(value.([]byte))
		setDefaultContentType(t, "application/octet-stream")
		return nil
	}

	forJson, err := writeQueryAndHeader(value, t)
	if err != nil {
		return err
	}
	body, err := json.Marshal(forJson)
	if err != nil {
		return err
	}
	t.SetBody(body)
	setDefaultContentType(t, "application/json")
	return nil
}

func setDefaultContentType(t *Template, contentType string) {
	if len(t.Header("Content-Type")) == 0 {
		t.SetHeader("Content-Type", contentType)
	}
}

// writeQueryAndHeader moves fields tagged "query" and "header" to the
// template and returns the object to be marshaled to JSON.
func writeQueryAndHeader(obj interface{}, t *Template) (interface{}, error) {
	objValue := reflect.ValueOf(obj)
	for objValue.Kind() == reflect.Ptr && !objValue.IsNil() {
		objValue = objValue.Elem()
	}
	if objValue.Kind() != reflect.Struct || !hasQueryOrHeader(objValue.Type()) {
		return obj, nil
	}
	objType := objValue.Type()

	forJson := make(map[string]interface{}, objType.NumField())
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		if field.PkgPath != "" {
			continue
		}

		headerKey := field.Tag.Get("header")
		queryKey := field.Tag.Get("query")
		if headerKey == "" && queryKey == "" {
			jsonTag := field.Tag.Get("json")
			if jsonTag == "-" {
				continue
			}
			parts := strings.SplitN(jsonTag, ",", 2)
			jsonKey := parts[0]
			if jsonKey == "" {
				jsonKey = field.Name
			}
			fieldValue := objValue.Field(i)
			if len(parts) == 2 && parts[1] == "omitempty" {
				if fieldValue.IsZero() {
					continue
				}
				kind := fieldValue.Kind()
				if kind == reflect.Array || kind == reflect.Map || kind == reflect.Slice || kind == reflect.String {
					if fieldValue.Len() == 0 {
						continue
					}
				}
			}
			forJson[jsonKey] = fieldValue.Interface()
			continue
		}

		value, err := toString(objValue.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value for field %s: %w", field.Name, err)
		}
		if headerKey != "" {
			t.SetHeader(headerKey, value)
		} else {
			t.SetQuery(queryKey, value)
		}
	}
	return forJson, nil
}

func hasQueryOrHeader(structType reflect.Type) bool {
	for i := 0; i < structType.NumField(); i++ {
		tag := structType.Field(i).Tag
		if tag.Get("header") != "" || tag.Get("query") != "" {
			return true
		}
	}
	return false
}

// JsonDecoder decodes JSON responses.
//
// String and byte slice results receive the raw body. An empty body
// decodes to the zero value. Fields of struct results tagged with
// `header:"name"` are filled from response headers.
type JsonDecoder struct{}

func (JsonDecoder) Decode(res *http.Response, t reflect.Type) (interface{}, error) {
	if t.Kind() == reflect.String || t == bytesType {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if t == bytesType {
			return body, nil
		}
		return reflect.ValueOf(string(body)).Convert(t).Interface(), nil
	}

	ptr := reflect.New(t)
	if err := json.NewDecoder(res.Body).Decode(ptr.Interface()); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := parseHeader(ptr.Elem(), res.Header); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// parseHeader fills fields tagged "header" from HTTP headers.
func parseHeader(objValue reflect.Value, header http.Header) error {
	for objValue.Kind() == reflect.Ptr {
		if objValue.IsNil() {
			return nil
		}
		objValue = objValue.Elem()
	}
	if objValue.Kind() != reflect.Struct {
		return nil
	}
	objType := objValue.Type()
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		headerKey := field.Tag.Get("header")
		if headerKey == "" || field.PkgPath != "" {
			continue
		}
		value := header.Get(headerKey)
		if value == "" {
			// Reset just in case it was provided in JSON.
			fieldValue := objValue.Field(i)
			fieldValue.Set(reflect.Zero(fieldValue.Type()))
			continue
		}

		var err error
		fieldPtr := objValue.Field(i).Addr().Interface()
		if unmarshaler, ok := fieldPtr.(encoding.TextUnmarshaler); ok {
			err = unmarshaler.UnmarshalText([]byte(value))
		} else if fieldStrPtr, ok := fieldPtr.(*string); ok {
			*fieldStrPtr = value
		} else {
			_, err = fmt.Sscanf(value, "%v", fieldPtr)
		}
		if err != nil {
			return fmt.Errorf("failed to parse value %q for field %s: %w", value, field.Name, err)
		}
	}
	return nil
}

// DefaultErrorDecoder returns *ResponseError. If the response has
// Retry-After header, the error is wrapped into *RetryableError.
type DefaultErrorDecoder struct {
	// Now is used to interpret Retry-After given in seconds.
	// Default is time.Now.
	Now func() time.Time
}

func (d DefaultErrorDecoder) Decode(methodKey string, res *http.Response) error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &DecodeError{StatusCode: res.StatusCode, Err: fmt.Errorf("failed to read error body: %w", err)}
	}
	respErr := &ResponseError{
		MethodKey:  methodKey,
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Header:     res.Header.Clone(),
		Body:       body,
	}
	if msg, ok := shared.ParseErrorMessage(body); ok {
		respErr.Message = msg.Error
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	if retryAfter, ok := parseRetryAfter(res.Header.Get("Retry-After"), now()); ok {
		return &RetryableError{Err: respErr, RetryAfter: retryAfter}
	}
	return respErr
}

// parseRetryAfter parses delay-seconds or HTTP-date.
func parseRetryAfter(value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			seconds = 0
		}
		return now.Add(time.Duration(seconds) * time.Second), true
	}
	if t, err := http.ParseTime(value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
