package restface

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateClient(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateClient(&buf, GenerateConfig{
		API:         gitHubAPI,
		APIVar:      "gitHubAPI",
		Package:     "ghclient",
		PackagePath: "example.com/ghclient",
	})
	require.NoError(t, err)
	src := buf.String()

	for _, want := range []string{
		"// Code generated by restface. DO NOT EDIT.",
		"package ghclient",
		`"context"`,
		`"net/url"`,
		`"github.com/starius/restface"`,
		"type GitHubClient struct",
		"var _ restface.GitHub = (*GitHubClient)(nil)",
		"func NewGitHubClient(baseURL string, opts ...restface.Option) (*GitHubClient, error) {",
		"restface.NewClient(restface.gitHubAPI, baseURL, opts...)",
		"func (c *GitHubClient) Contributors(ctx context.Context, owner string, repo string) ([]restface.Contributor, error) {",
		`return restface.Call[[]restface.Contributor](ctx, c.client, "Contributors", owner, repo)`,
		"func (c *GitHubClient) CreateIssue(ctx context.Context, body *restface.Issue, owner string, repo string) error {",
		`_, err := c.client.Invoke(ctx, "CreateIssue", body, owner, repo)`,
		"func (c *GitHubClient) Search(ctx context.Context, query map[string]interface{}, headers map[string][]string) ([]string, error) {",
		"func (c *GitHubClient) At(ctx context.Context, u *url.URL, id int) (string, error) {",
		"func (c *GitHubClient) Unsupported(ctx context.Context) error {",
	} {
		require.Contains(t, src, want)
	}
}

type Shop interface {
	Price(ctx context.Context, item string) (int, error)
	Cheap(ctx context.Context, item string, limit int) (bool, error)
}

func cheap(c *Client, ctx context.Context, item string, limit int) (bool, error) {
	price, err := Call[int](ctx, c, "Price", item)
	if err != nil {
		return false, err
	}
	return price <= limit, nil
}

var shopAPI = &API{
	Type: TypeOf[Shop](),
	Endpoints: []Endpoint{
		{Method: "Price", Request: "GET /price/{item}", Params: []Param{{}, Named("item")}},
		{Method: "Cheap", Default: cheap},
	},
}

func TestGenerateClientDefaultMethod(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateClient(&buf, GenerateConfig{
		API:         shopAPI,
		APIVar:      "shopAPI",
		Package:     "restface",
		PackagePath: "github.com/starius/restface",
		TypeName:    "shopClient",
	})
	require.NoError(t, err)
	src := buf.String()

	require.Contains(t, src, "var _ Shop = (*shopClient)(nil)")
	require.Contains(t, src, "restface.NewClient(shopAPI, baseURL, opts...)")
	require.Contains(t, src, "func (c *shopClient) Price(ctx context.Context, item string) (int, error) {")
	require.Contains(t, src, "func (c *shopClient) Cheap(ctx context.Context, arg1 string, arg2 int) (bool, error) {")
	require.Contains(t, src, `restface.Call[bool](ctx, c.client, "Cheap", arg1, arg2)`)
}

func TestGenerateClientErrors(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateClient(&buf, GenerateConfig{API: gitHubAPI, Package: "ghclient"})
	require.ErrorContains(t, err, "APIVar and Package must be set")

	err = GenerateClient(&buf, GenerateConfig{API: &API{}, APIVar: "api", Package: "p"})
	require.Error(t, err)
	require.Zero(t, buf.Len())
}

func TestParamNameClashes(t *testing.T) {
	stringType := reflect.TypeOf("")
	q := newQualifier("example.com/p")
	q.use("net/url", "url")
	taken := map[string]bool{}

	require.Equal(t, "urlArg", paramName(stringType, Named("url"), q, taken))
	require.Equal(t, "typeArg", paramName(stringType, Named("type"), q, taken))
	require.Equal(t, "cArg", paramName(stringType, Named("c"), q, taken))
	require.Equal(t, "userId", paramName(stringType, Named("user_id"), q, taken))
	require.Equal(t, "userId2", paramName(stringType, Named("user_id"), q, taken))
	require.Equal(t, "ctx", paramName(contextType, Param{}, q, taken))
}

func TestTypeString(t *testing.T) {
	q := newQualifier("example.com/p")
	cases := []struct {
		value interface{}
		want  string
	}{
		{value: map[string][]*Issue(nil), want: "map[string][]*restface.Issue"},
		{value: [2]int{}, want: "[2]int"},
		{value: (<-chan string)(nil), want: "<-chan string"},
		{value: []interface{}(nil), want: "[]interface{}"},
	}
	for _, tc := range cases {
		got, err := q.typeString(reflect.TypeOf(tc.value))
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := q.typeString(reflect.TypeOf(struct{ A int }{}))
	require.Error(t, err)

	require.True(t, isVersionSuffix("v2"))
	require.False(t, isVersionSuffix("v"))
	require.False(t, isVersionSuffix("vx1"))
}
