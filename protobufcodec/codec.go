// Package protobufcodec sends and receives protobuf messages with restface.
package protobufcodec

import (
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/starius/restface"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

const (
	ContentType     = "application/x-protobuf"
	JsonContentType = "application/json"
)

var messageType = reflect.TypeOf((*proto.Message)(nil)).Elem()

// Codec encodes bodies and decodes results implementing proto.Message.
// Other types are passed to Next, restface.JsonEncoder and
// restface.JsonDecoder by default.
type Codec struct {
	// JSON switches the wire format to protojson.
	JSON bool

	NextEncoder restface.Encoder
	NextDecoder restface.Decoder
}

func (c Codec) Encode(value interface{}, bodyType reflect.Type, t *restface.Template) error {
	m, ok := value.(proto.Message)
	if !ok {
		next := c.NextEncoder
		if next == nil {
			next = restface.JsonEncoder{}
		}
		return next.Encode(value, bodyType, t)
	}

	var body []byte
	var err error
	contentType := ContentType
	if c.JSON {
		body, err = protojson.Marshal(m)
		contentType = JsonContentType
	} else {
		body, err = proto.Marshal(m)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", value, err)
	}
	t.SetBody(body)
	if len(t.Header("Content-Type")) == 0 {
		t.SetHeader("Content-Type", contentType)
	}
	return nil
}

func (c Codec) Decode(res *http.Response, t reflect.Type) (interface{}, error) {
	if t.Kind() != reflect.Ptr || !t.Implements(messageType) {
		next := c.NextDecoder
		if next == nil {
			next = restface.JsonDecoder{}
		}
		return next.Decode(res, t)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	m := reflect.New(t.Elem()).Interface().(proto.Message)
	if c.JSON {
		err = protojson.Unmarshal(body, m)
	} else {
		err = proto.Unmarshal(body, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", t, err)
	}
	return m, nil
}
