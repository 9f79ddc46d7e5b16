package example

//go:generate go run ./gen/...

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/starius/restface"
)

type Note struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Text    string    `json:"text"`
	Tags    []string  `json:"tags,omitempty"`
	Created time.Time `json:"created"`

	// Version is sent by the server in ETag header.
	Version string `header:"ETag"`
}

type NewNote struct {
	Title string   `json:"title" validate:"required"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty" validate:"max=10"`

	// Author is sent as a query parameter.
	Author string `query:"author"`
}

type ListOptions struct {
	Tag   string `query:"tag,omitempty"`
	Limit int    `query:"limit,omitempty"`
}

type Session struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Service is implemented by all our HTTP services.
type Service interface {
	Version(ctx context.Context) (string, error)
}

// Notes is the API of the notes server.
type Notes interface {
	Service

	Login(ctx context.Context, user, password string) (*Session, error)
	Get(ctx context.Context, id string) (*Note, error)
	List(ctx context.Context, opts ListOptions) ([]Note, error)
	Create(ctx context.Context, note *NewNote) (*Note, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, tags []string) ([][]string, error)
	Raw(ctx context.Context, id string) (*http.Response, error)
	Exists(ctx context.Context, id string) (bool, error)
	Tag(ctx context.Context, id string, tags []string, headers map[string]string) error
}

var ServiceAPI = &restface.API{
	Type:    restface.TypeOf[Service](),
	Headers: []string{"User-Agent: notes-client"},
	Endpoints: []restface.Endpoint{
		{
			Method:  "Version",
			Request: "GET /version",
			Headers: []string{"Accept: text/plain"},
		},
	},
}

var NotesAPI = &restface.API{
	Type:    restface.TypeOf[Notes](),
	Parent:  ServiceAPI,
	Headers: []string{"Accept: application/json"},
	Endpoints: []restface.Endpoint{
		{
			Method:  "Login",
			Request: "POST /login",
			Params:  []restface.Param{{}, restface.Named("user"), restface.Named("password")},
		},
		{
			Method:  "Get",
			Request: "GET /notes/{id}",
			Params:  []restface.Param{{}, restface.Named("id")},
		},
		{
			Method:  "List",
			Request: "GET /notes",
			Params:  []restface.Param{{}, restface.QueryMap()},
		},
		{
			Method:  "Create",
			Request: "POST /notes",
		},
		{
			Method:  "Delete",
			Request: "DELETE /notes/{id}",
			Params:  []restface.Param{{}, restface.Named("id")},
		},
		{
			Method:  "Export",
			Request: "GET /export?tag={tags}",
			Headers: []string{"Accept: text/csv"},
			Params:  []restface.Param{{}, restface.Named("tags")},
		},
		{
			Method:  "Raw",
			Request: "GET /notes/{id}",
			Params:  []restface.Param{{}, restface.Named("id")},
		},
		{
			Method:  "Exists",
			Default: exists,
		},
		{
			Method:  "Tag",
			Request: "PUT /notes/{id}/tags",
			Headers: []string{"Content-Type: application/json"},
			Body:    `{"tags": "{tags}"}`,
			Params:  []restface.Param{{}, restface.Named("id"), restface.Named("tags"), restface.HeaderMap()},
		},
	},
}

func exists(c *restface.Client, ctx context.Context, id string) (bool, error) {
	_, err := restface.Call[*Note](ctx, c, "Get", id)
	var respErr *restface.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
