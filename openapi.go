package restface

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

// OpenAPI describes methods sent over HTTP as an OpenAPI 3 document.
// Ignored methods and methods implemented by Endpoint.Default are omitted.
func (c *Client) OpenAPI(title, version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Paths: openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}

	for _, d := range c.descriptors {
		if d.ignored {
			continue
		}
		op, err := openAPIOperation(d, doc.Components.Schemas)
		if err != nil {
			return nil, &BuildError{Key: d.key, Err: err}
		}

		p := d.template.path
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		pathItem := doc.Paths.Find(p)
		if pathItem == nil {
			pathItem = &openapi3.PathItem{}
			doc.Paths[p] = pathItem
		}
		pathItem.SetOperation(d.template.method, op)
	}
	return doc, nil
}

func openAPIOperation(d *MethodDescriptor, schemas openapi3.Schemas) (*openapi3.Operation, error) {
	t := d.template
	op := openapi3.NewOperation()
	op.OperationID = d.name
	if i := strings.IndexByte(d.key, '#'); i > 0 {
		op.Tags = []string{d.key[:i]}
	}

	pathExpr, err := compile(t.path)
	if err != nil {
		return nil, err
	}
	for _, name := range pathExpr.names {
		param := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
		op.AddParameter(param)
	}
	for _, key := range t.query.keys {
		if !templated(t.query.get(key)) {
			continue
		}
		op.AddParameter(openapi3.NewQueryParameter(key).WithSchema(openapi3.NewStringSchema()))
	}
	for _, key := range t.headers.keys {
		if !templated(t.headers.get(key)) {
			continue
		}
		op.AddParameter(openapi3.NewHeaderParameter(key).WithSchema(openapi3.NewStringSchema()))
	}

	switch {
	case d.bodyIndex != -1:
		schema, err := schemaFor(d.bodyType, schemas)
		if err != nil {
			return nil, err
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithContent(openapi3.NewContentWithSchemaRef(schema, []string{"application/json"})),
		}
	case len(d.formParams) != 0 && t.bodyTemplate == "":
		form := openapi3.NewObjectSchema()
		for _, name := range d.formParams {
			form.WithProperty(name, openapi3.NewStringSchema())
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithContent(openapi3.NewContentWithSchema(form, []string{"application/x-www-form-urlencoded"})),
		}
	}

	resp := openapi3.NewResponse().WithDescription(http.StatusText(http.StatusOK))
	if rt := d.returnType; rt != nil && rt != responseType && rt.Kind() != reflect.Interface {
		schema, err := schemaFor(rt, schemas)
		if err != nil {
			return nil, err
		}
		resp.Content = openapi3.NewContentWithSchemaRef(schema, []string{"application/json"})
	}
	op.Responses = openapi3.NewResponses()
	op.AddResponse(http.StatusOK, resp)
	return op, nil
}

func schemaFor(t reflect.Type, schemas openapi3.Schemas) (*openapi3.SchemaRef, error) {
	if t.Kind() == reflect.Interface {
		return openapi3.NewSchemaRef("", openapi3.NewSchema()), nil
	}
	return openapi3gen.NewSchemaRefForValue(reflect.New(t).Elem().Interface(), schemas)
}

func templated(values []string) bool {
	for _, v := range values {
		if strings.Contains(v, "{") {
			return true
		}
	}
	return false
}
