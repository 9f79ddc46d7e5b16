package restface

import (
	"reflect"

	"github.com/gorilla/schema"
)

// QueryMapEncoder converts a query map argument which is not a map to
// query parameters.
type QueryMapEncoder interface {
	Encode(value interface{}) (map[string][]string, error)
}

// SchemaQueryMapEncoder encodes structs with gorilla/schema. Field names
// are taken from `query` tags, falling back to `schema` tags.
type SchemaQueryMapEncoder struct {
	encoder *schema.Encoder
}

func NewSchemaQueryMapEncoder() *SchemaQueryMapEncoder {
	encoder := schema.NewEncoder()
	encoder.SetAliasTag("query")
	return &SchemaQueryMapEncoder{encoder: encoder}
}

// RegisterEncoder registers a converter for fields of type of value,
// e.g. time.Time.
func (e *SchemaQueryMapEncoder) RegisterEncoder(value interface{}, encoder func(reflect.Value) string) {
	e.encoder.RegisterEncoder(value, encoder)
}

func (e *SchemaQueryMapEncoder) Encode(value interface{}) (map[string][]string, error) {
	dst := make(map[string][]string)
	if err := e.encoder.Encode(value, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
