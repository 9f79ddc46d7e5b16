package restface

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Templates are UTF-8 text with {name} placeholders. A '{' that does not
// start a well-formed placeholder is kept as literal text, so JSON body
// templates like {"user": "{user}"} work without escaping.
var templateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Var", Pattern: `\{[A-Za-z0-9_.\-]+\}`},
	{Name: "Text", Pattern: `[^{]+|\{`},
})

type templateAST struct {
	Chunks []*templateChunk `parser:"@@*"`
}

type templateChunk struct {
	Var  *string `parser:"  @Var"`
	Text *string `parser:"| @Text"`
}

var templateParser = participle.MustBuild[templateAST](
	participle.Lexer(templateLexer),
)

type chunk struct {
	text string
	name string // Non-empty for placeholders.
}

// expression is a parsed template. It is immutable and shared between
// all templates using the same source string.
type expression struct {
	source string
	chunks []chunk
	names  []string
}

var expressions sync.Map // string -> *expression

func compile(source string) (*expression, error) {
	if e, has := expressions.Load(source); has {
		return e.(*expression), nil
	}
	ast, err := templateParser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", source, err)
	}
	e := &expression{source: source}
	for _, c := range ast.Chunks {
		switch {
		case c.Var != nil:
			name := strings.TrimSuffix(strings.TrimPrefix(*c.Var, "{"), "}")
			e.chunks = append(e.chunks, chunk{name: name})
			e.names = append(e.names, name)
		case c.Text != nil:
			// Merge adjacent literals produced by a lone '{'.
			if n := len(e.chunks); n > 0 && e.chunks[n-1].name == "" {
				e.chunks[n-1].text += *c.Text
			} else {
				e.chunks = append(e.chunks, chunk{text: *c.Text})
			}
		}
	}
	actual, _ := expressions.LoadOrStore(source, e)
	return actual.(*expression), nil
}

func (e *expression) literal() bool {
	return len(e.names) == 0
}

// variable returns the name of the placeholder if the whole template is
// exactly one placeholder.
func (e *expression) variable() (string, bool) {
	if len(e.chunks) == 1 && e.chunks[0].name != "" {
		return e.chunks[0].name, true
	}
	return "", false
}

// expand substitutes variables into the template. List values are joined
// with commas. Undefined variables expand to nothing. The second result
// reports whether the template is literal or at least one of its
// variables is defined.
func (e *expression) expand(vars *variables, encode func(string) string) (string, bool) {
	if e.literal() {
		return e.source, true
	}
	var b strings.Builder
	defined := false
	for _, c := range e.chunks {
		if c.name == "" {
			b.WriteString(c.text)
			continue
		}
		v, has := vars.get(c.name)
		if !has {
			continue
		}
		defined = true
		for i, s := range v.values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(encode(s))
		}
	}
	return b.String(), defined
}

// expandValues is used for multi-valued parts (query and headers): a
// template consisting of a single list-valued variable produces one
// value per element.
func (e *expression) expandValues(vars *variables, encode func(string) string) ([]string, bool) {
	if name, ok := e.variable(); ok {
		v, has := vars.get(name)
		if !has {
			return nil, false
		}
		if v.list {
			values := make([]string, 0, len(v.values))
			for _, s := range v.values {
				values = append(values, encode(s))
			}
			return values, true
		}
	}
	s, defined := e.expand(vars, encode)
	if !defined {
		return nil, false
	}
	return []string{s}, true
}

// varValue is a resolved variable: either a single string or a list.
type varValue struct {
	values []string
	list   bool
}

// variables is the ordered map of resolved template variables.
type variables struct {
	names  []string
	values map[string]varValue
}

func newVariables() *variables {
	return &variables{values: make(map[string]varValue)}
}

func (v *variables) set(name string, value varValue) {
	if _, has := v.values[name]; !has {
		v.names = append(v.names, name)
	}
	v.values[name] = value
}

func (v *variables) get(name string) (varValue, bool) {
	value, has := v.values[name]
	return value, has
}

func identity(s string) string {
	return s
}

// encodeComponent percent-encodes everything except unreserved
// characters. Spaces become %20, not '+'.
func encodeComponent(s string) string {
	// QueryEscape encodes '+' itself, so the only '+' left are spaces.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func pathEncoder(encodeSlash bool) func(string) string {
	return func(s string) string {
		escaped := url.PathEscape(s)
		if !encodeSlash {
			escaped = strings.ReplaceAll(escaped, "%2F", "/")
		}
		return escaped
	}
}
