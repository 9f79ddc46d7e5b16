package restface

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	cases := []struct {
		source  string
		names   []string
		literal bool
	}{
		{source: "", literal: true},
		{source: "/users", literal: true},
		{source: "/users/{id}", names: []string{"id"}},
		{source: "/repos/{owner}/{repo}/issues/{number}", names: []string{"owner", "repo", "number"}},
		{source: `{"name": "{name}"}`, names: []string{"name"}},
		{source: "{a}{b}", names: []string{"a", "b"}},
		{source: "{not closed", literal: true},
		{source: "{}", literal: true},
		{source: "{user.name}", names: []string{"user.name"}},
	}

	for _, tc := range cases {
		e, err := compile(tc.source)
		require.NoError(t, err, tc.source)
		require.Equal(t, tc.names, e.names, tc.source)
		require.Equal(t, tc.literal, e.literal(), tc.source)

		again, err := compile(tc.source)
		require.NoError(t, err)
		require.Same(t, e, again, "parsed templates are cached")
	}
}

func TestExpand(t *testing.T) {
	vars := newVariables()
	vars.set("id", varValue{values: []string{"a b/c"}})
	vars.set("list", varValue{values: []string{"x", "y z"}, list: true})
	vars.set("empty", varValue{values: []string{""}})

	cases := []struct {
		source  string
		encode  func(string) string
		want    string
		defined bool
	}{
		{source: "/users/{id}", encode: pathEncoder(false), want: "/users/a%20b/c", defined: true},
		{source: "/users/{id}", encode: pathEncoder(true), want: "/users/a%20b%2Fc", defined: true},
		{source: "{id}", encode: encodeComponent, want: "a%20b%2Fc", defined: true},
		{source: "{id}", encode: identity, want: "a b/c", defined: true},
		{source: "{list}", encode: encodeComponent, want: "x,y%20z", defined: true},
		{source: "/x/{missing}", encode: identity, want: "/x/", defined: false},
		{source: "/x/{missing}/{id}", encode: identity, want: "/x//a b/c", defined: true},
		{source: "literal", encode: identity, want: "literal", defined: true},
		{source: "{empty}", encode: identity, want: "", defined: true},
	}

	for _, tc := range cases {
		e, err := compile(tc.source)
		require.NoError(t, err)
		got, defined := e.expand(vars, tc.encode)
		require.Equal(t, tc.want, got, tc.source)
		require.Equal(t, tc.defined, defined, tc.source)
	}
}

func TestExpandValues(t *testing.T) {
	vars := newVariables()
	vars.set("list", varValue{values: []string{"a", "b c"}, list: true})
	vars.set("one", varValue{values: []string{"v"}})

	e, err := compile("{list}")
	require.NoError(t, err)
	values, ok := e.expandValues(vars, encodeComponent)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b%20c"}, values)

	e, err = compile("prefix-{list}")
	require.NoError(t, err)
	values, ok = e.expandValues(vars, identity)
	require.True(t, ok)
	require.Equal(t, []string{"prefix-a,b c"}, values)

	e, err = compile("{missing}")
	require.NoError(t, err)
	_, ok = e.expandValues(vars, identity)
	require.False(t, ok)
}

func TestEncodeComponent(t *testing.T) {
	require.Equal(t, "a%20b%2Bc%26d%3De", encodeComponent("a b+c&d=e"))
	require.Equal(t, "%D0%BF", encodeComponent("п"))
	require.Equal(t, "-._~", encodeComponent("-._~"))
}
