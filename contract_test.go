package restface

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

type Issue struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type GitHub interface {
	Contributors(ctx context.Context, owner, repo string) ([]Contributor, error)
	CreateIssue(ctx context.Context, issue *Issue, owner, repo string) error
	Login(ctx context.Context, user, password string) (string, error)
	Search(ctx context.Context, query map[string]interface{}, headers map[string][]string) ([]string, error)
	At(ctx context.Context, base *url.URL, id int) (string, error)
	Unsupported(ctx context.Context) error
}

var gitHubAPI = &API{
	Type:    TypeOf[GitHub](),
	Headers: []string{"Accept: application/json", "User-Agent: restface-test"},
	Endpoints: []Endpoint{
		{
			Method:  "Contributors",
			Request: "GET /repos/{owner}/{repo}/contributors",
			Params:  []Param{{}, Named("owner"), Named("repo")},
		},
		{
			Method:  "CreateIssue",
			Request: "POST /repos/{owner}/{repo}/issues",
			Headers: []string{"Accept: application/vnd.github+json"},
			Params:  []Param{{}, {}, Named("owner"), Named("repo")},
		},
		{
			Method:  "Login",
			Request: "POST /login",
			Params:  []Param{{}, Named("user"), Named("password")},
		},
		{
			Method:  "Search",
			Request: "GET /search?q={q}",
			Params:  []Param{{}, QueryMap(), HeaderMap()},
		},
		{
			Method:  "At",
			Request: "GET /items/{id}",
			Params:  []Param{{}, {}, Named("id")},
		},
		{
			Method: "Unsupported",
			Ignore: true,
		},
	},
}

func parseGitHub(t *testing.T) map[string]*MethodDescriptor {
	descriptors, err := DefaultContract{}.Parse(gitHubAPI)
	require.NoError(t, err)
	byName := make(map[string]*MethodDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name()] = d
	}
	return byName
}

func TestContractParse(t *testing.T) {
	byName := parseGitHub(t)
	require.Len(t, byName, 6)

	d := byName["Contributors"]
	require.Equal(t, "GitHub#Contributors(context.Context,string,string)", d.Key())
	require.Equal(t, "[]restface.Contributor", d.ReturnType().String())
	require.Equal(t, "GET", d.template.Method())
	require.Equal(t, "/repos/{owner}/{repo}/contributors", d.template.Path())
	require.Equal(t, map[int][]string{1: {"owner"}, 2: {"repo"}}, d.indexToName)
	require.True(t, d.skipped.Has(0))
	require.Equal(t, -1, d.bodyIndex)
	require.Empty(t, d.FormParams())
	require.Equal(t, []string{"application/json"}, d.template.Header("Accept"))
	require.Equal(t, []string{"restface-test"}, d.template.Header("User-Agent"))

	d = byName["CreateIssue"]
	require.Equal(t, 1, d.bodyIndex)
	require.Equal(t, "*restface.Issue", d.BodyType().String())
	require.Nil(t, d.ReturnType())
	// Method headers override headers of the type.
	require.Equal(t, []string{"application/vnd.github+json"}, d.template.Header("Accept"))

	d = byName["Login"]
	require.Equal(t, []string{"user", "password"}, d.FormParams())
	require.Equal(t, -1, d.bodyIndex)

	d = byName["Search"]
	require.Equal(t, 1, d.queryMapIndex)
	require.Equal(t, 2, d.headerMapIndex)
	require.False(t, d.queryMapEncoded)

	d = byName["At"]
	require.Equal(t, 1, d.urlIndex)

	d = byName["Unsupported"]
	require.True(t, d.Ignored())
}

func TestContractParentHeaders(t *testing.T) {
	type Base interface {
		Ping(ctx context.Context) error
	}
	type Child interface {
		Base
		Get(ctx context.Context, id string) (string, error)
	}
	parent := &API{
		Type:      TypeOf[Base](),
		Headers:   []string{"X-Parent: 1", "X-Shared: parent"},
		Endpoints: []Endpoint{{Method: "Ping", Request: "GET /ping"}},
	}
	api := &API{
		Type:    TypeOf[Child](),
		Parent:  parent,
		Headers: []string{"X-Shared: child"},
		Endpoints: []Endpoint{{
			Method:  "Get",
			Request: "GET /items/{id}",
			Params:  []Param{{}, Named("id")},
		}},
	}

	descriptors, err := DefaultContract{}.Parse(api)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	for _, d := range descriptors {
		require.True(t, strings.HasPrefix(d.Key(), "Child#"), d.Key())
		require.Equal(t, []string{"1"}, d.template.Header("X-Parent"))
		require.Equal(t, []string{"child"}, d.template.Header("X-Shared"))
	}
}

func TestContractErrors(t *testing.T) {
	type Simple interface {
		Get(ctx context.Context, id string) (string, error)
	}
	type TwoBodies interface {
		Post(ctx context.Context, a, b string) error
	}
	type NoError interface {
		Get(ctx context.Context) string
	}
	type MapArgs interface {
		Get(ctx context.Context, m map[int]string) error
	}
	type FormAndBody interface {
		Post(ctx context.Context, body []byte, name string) error
	}
	type Base interface {
		Ping() error
	}
	type Middle interface {
		Base
	}
	type Leaf interface {
		Middle
	}

	simple := func(e Endpoint) *API {
		e.Method = "Get"
		return &API{Type: TypeOf[Simple](), Endpoints: []Endpoint{e}}
	}

	cases := []struct {
		name string
		api  *API
		want string
	}{
		{
			name: "nil API",
			api:  nil,
			want: "API type is not set",
		},
		{
			name: "not an interface",
			api:  &API{Type: TypeOf[Issue]()},
			want: "want interface",
		},
		{
			name: "no request line",
			api:  &API{Type: TypeOf[Simple]()},
			want: "not declared with HTTP method",
		},
		{
			name: "bad verb",
			api:  simple(Endpoint{Request: "FETCH /x", Params: []Param{{}, Named("id")}}),
			want: "doesn't start with an HTTP method",
		},
		{
			name: "unknown method",
			api:  &API{Type: TypeOf[Simple](), Endpoints: []Endpoint{{Method: "Nope", Request: "GET /"}}},
			want: "has no such method",
		},
		{
			name: "duplicate",
			api: &API{Type: TypeOf[Simple](), Endpoints: []Endpoint{
				{Method: "Get", Request: "GET /{id}", Params: []Param{{}, Named("id")}},
				{Method: "Get", Request: "GET /{id}", Params: []Param{{}, Named("id")}},
			}},
			want: "overrides unsupported",
		},
		{
			name: "bad header",
			api:  simple(Endpoint{Request: "GET /{id}", Headers: []string{"no colon"}, Params: []Param{{}, Named("id")}}),
			want: "must be in form 'Name: value'",
		},
		{
			name: "too many params",
			api:  simple(Endpoint{Request: "GET /{id}", Params: []Param{{}, Named("id"), Named("x")}}),
			want: "3 params declared",
		},
		{
			name: "bound context",
			api:  simple(Endpoint{Request: "GET /{id}", Params: []Param{Named("ctx"), Named("id")}}),
			want: "context parameter 0 can not be bound",
		},
		{
			name: "two roles",
			api:  simple(Endpoint{Request: "GET /{id}", Params: []Param{{}, {Names: []string{"id"}, HeaderMap: true}}}),
			want: "exactly one of",
		},
		{
			name: "encoded header map",
			api:  simple(Endpoint{Request: "GET /", Params: []Param{{}, {HeaderMap: true, Encoded: true}}}),
			want: "Encoded is valid only for query maps",
		},
		{
			name: "empty name",
			api:  simple(Endpoint{Request: "GET /", Params: []Param{{}, Named("")}}),
			want: "empty name",
		},
		{
			name: "header map of string",
			api:  simple(Endpoint{Request: "GET /", Params: []Param{{}, HeaderMap()}}),
			want: "must be a map with string keys",
		},
		{
			name: "too many bodies",
			api: &API{Type: TypeOf[TwoBodies](), Endpoints: []Endpoint{
				{Method: "Post", Request: "POST /"},
			}},
			want: "too many body parameters",
		},
		{
			name: "bad results",
			api: &API{Type: TypeOf[NoError](), Endpoints: []Endpoint{
				{Method: "Get", Request: "GET /"},
			}},
			want: "must return error or (T, error)",
		},
		{
			name: "query map with int keys",
			api: &API{Type: TypeOf[MapArgs](), Endpoints: []Endpoint{
				{Method: "Get", Request: "GET /", Params: []Param{{}, QueryMap()}},
			}},
			want: "query map key must be a string",
		},
		{
			name: "form and body",
			api: &API{Type: TypeOf[FormAndBody](), Endpoints: []Endpoint{
				{Method: "Post", Request: "POST /", Params: []Param{{}, {}, Named("name")}},
			}},
			want: "can not be used with form parameters",
		},
		{
			name: "deep inheritance",
			api: &API{
				Type:   TypeOf[Leaf](),
				Parent: &API{Type: TypeOf[Middle](), Parent: &API{Type: TypeOf[Base]()}},
			},
			want: "only single-level inheritance supported",
		},
		{
			name: "parent not embedded",
			api: &API{
				Type:   TypeOf[Simple](),
				Parent: &API{Type: TypeOf[Base]()},
			},
			want: "does not embed its parent",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DefaultContract{}.Parse(tc.api)
			require.Error(t, err)
			var buildErr *BuildError
			require.True(t, errors.As(err, &buildErr), "got %T: %v", err, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

type Store[T any] interface {
	Get(ctx context.Context, id string) (T, error)
}

func TestContractRejectsGenericInterfaces(t *testing.T) {
	_, err := DefaultContract{}.Parse(&API{Type: TypeOf[Store[int]]()})
	require.ErrorContains(t, err, "parameterized types unsupported")
}

func TestContractSkipsDefaultMethods(t *testing.T) {
	type WithDefault interface {
		Get(ctx context.Context, id string) (string, error)
		Twice(ctx context.Context, id string) (string, error)
	}
	api := &API{
		Type: TypeOf[WithDefault](),
		Endpoints: []Endpoint{
			{Method: "Get", Request: "GET /{id}", Params: []Param{{}, Named("id")}},
			{Method: "Twice", Default: func(c *Client, ctx context.Context, id string) (string, error) {
				return "", nil
			}},
		},
	}
	descriptors, err := DefaultContract{}.Parse(api)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Equal(t, "Get", descriptors[0].Name())
}
