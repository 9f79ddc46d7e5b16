/*
Package restface creates HTTP clients from declarations of Go interfaces.

Describe the remote API as a Go interface. Each method returns error or
(T, error) and may take context.Context.

	type GitHub interface {
		Contributors(ctx context.Context, owner, repo string) ([]Contributor, error)
		CreateIssue(ctx context.Context, issue *Issue, owner, repo string) error
		Search(ctx context.Context, query map[string]string) ([]Repo, error)
	}

Then declare how the methods map to HTTP requests:

	var GitHubAPI = &restface.API{
		Type:    restface.TypeOf[GitHub](),
		Headers: []string{"Accept: application/vnd.github+json"},
		Endpoints: []restface.Endpoint{
			{
				Method:  "Contributors",
				Request: "GET /repos/{owner}/{repo}/contributors",
				Params:  []restface.Param{{}, restface.Named("owner"), restface.Named("repo")},
			},
			{
				Method:  "CreateIssue",
				Request: "POST /repos/{owner}/{repo}/issues",
				Params:  []restface.Param{{}, {}, restface.Named("owner"), restface.Named("repo")},
			},
			{
				Method:  "Search",
				Request: "GET /search/repositories",
				Params:  []restface.Param{{}, restface.QueryMap()},
			},
		},
	}

Params are listed by position, context included. A parameter without a
declaration is the request body, unless it is *url.URL, which replaces
the base URL of the client. Named parameters provide {name} placeholders
of the request line, headers and body template. Named parameters not used
by any template are sent as a form.

Create the client and call methods:

	client, err := restface.NewClient(GitHubAPI, "https://api.github.com")
	...
	contributors, err := restface.Call[[]Contributor](ctx, client, "Contributors", "golang", "go")

The same can be done through a struct of funcs filled by Client.Bind or a
static client generated by GenerateClient, both satisfying the compiler's
type checks.

Values of placeholders are converted to strings by Expander. Path values
are percent-encoded except "/" (unless Endpoint.EncodeSlash), query values
are percent-encoded, header and body values are used as is. Slices expand
to multiple query values or headers when the placeholder is the whole
value, and to comma separated lists otherwise.

Calls are repeated after transport failures and after responses which
ErrorDecoder turned into *RetryableError, see Retryer. By default
responses with status 400 and above become *ResponseError.
*/
package restface
