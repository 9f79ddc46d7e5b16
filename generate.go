package restface

import (
	"bytes"
	"fmt"
	"go/token"
	"io"
	"path"
	"reflect"
	"sort"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
	"golang.org/x/tools/imports"
)

// GenerateConfig configures GenerateClient.
type GenerateConfig struct {
	// API is the declaration the client is generated for.
	API *API

	// APIVar is the name of the package level variable holding API,
	// declared in the package of the interface.
	APIVar string

	// Package is the name of the generated package.
	Package string

	// PackagePath is the import path of the generated package. Types
	// from this package are not qualified.
	PackagePath string

	// TypeName of the generated struct. Default is interface name
	// followed by "Client".
	TypeName string
}

const clientSource = `// Code generated by restface. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	{{if .Renamed}}{{.Name}} {{end}}"{{.Path}}"
{{- end}}
)

// {{.TypeName}} implements {{.Interface}} over HTTP.
type {{.TypeName}} struct {
	client *restface.Client
}

var _ {{.Interface}} = (*{{.TypeName}})(nil)

func New{{.TypeName}}(baseURL string, opts ...restface.Option) (*{{.TypeName}}, error) {
	client, err := restface.NewClient({{.APIExpr}}, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &{{.TypeName}}{client: client}, nil
}

// Close closes idle connections.
func (c *{{.TypeName}}) Close() error {
	return c.client.Close()
}
{{range .Methods}}
func (c *{{$.TypeName}}) {{.Name}}({{.Params}}) {{.Results}} {
{{- if .Result}}
	return restface.Call[{{.Result}}]({{.Ctx}}, c.client, "{{.Name}}"{{.Args}})
{{- else}}
	_, err := c.client.Invoke({{.Ctx}}, "{{.Name}}"{{.Args}})
	return err
{{- end}}
}
{{end}}`

var clientTemplate = template.Must(template.New("static_client").Parse(clientSource))

type genImport struct {
	Name    string
	Path    string
	Renamed bool
}

type genMethod struct {
	Name    string
	Params  string
	Results string
	Result  string
	Ctx     string
	Args    string
}

// GenerateClient writes Go source of a struct implementing the interface
// of cfg.API by calling restface.Client.
func GenerateClient(w io.Writer, cfg GenerateConfig) error {
	if err := validateAPI(cfg.API); err != nil {
		return err
	}
	if cfg.APIVar == "" || cfg.Package == "" {
		return fmt.Errorf("APIVar and Package must be set")
	}
	apiType := cfg.API.Type

	q := newQualifier(cfg.PackagePath)
	q.use("github.com/starius/restface", "restface")

	typeName := cfg.TypeName
	if typeName == "" {
		typeName = strcase.ToCamel(apiType.Name() + "_client")
	}
	ifaceName, err := q.typeString(apiType)
	if err != nil {
		return err
	}
	apiExpr := cfg.APIVar
	if apiType.PkgPath() != cfg.PackagePath {
		apiExpr = q.use(apiType.PkgPath(), path.Base(apiType.PkgPath())) + "." + cfg.APIVar
	}

	methods := make([]genMethod, 0, apiType.NumMethod())
	for i := 0; i < apiType.NumMethod(); i++ {
		m, err := genMethodOf(q, cfg.API, apiType.Method(i))
		if err != nil {
			return err
		}
		methods = append(methods, m)
	}

	data := struct {
		Package   string
		Imports   []genImport
		TypeName  string
		Interface string
		APIExpr   string
		Methods   []genMethod
	}{
		Package:   cfg.Package,
		Imports:   q.imports(),
		TypeName:  typeName,
		Interface: ifaceName,
		APIExpr:   apiExpr,
		Methods:   methods,
	}

	var buf bytes.Buffer
	if err := clientTemplate.Execute(&buf, data); err != nil {
		return err
	}
	src, err := imports.Process("", buf.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("failed to format generated client: %w\n%s", err, buf.String())
	}
	_, err = w.Write(src)
	return err
}

func genMethodOf(q *qualifier, api *API, method reflect.Method) (genMethod, error) {
	ft := method.Type
	e, _ := api.findEndpoint(method.Name)
	g := genMethod{Name: method.Name, Ctx: q.use("context", "context") + ".Background()"}

	taken := make(map[string]bool)
	var params, args []string
	for i := 0; i < ft.NumIn(); i++ {
		typ, err := q.typeString(ft.In(i))
		if err != nil {
			return g, fmt.Errorf("%s: %w", method.Name, err)
		}
		var p Param
		if i < len(e.Params) {
			p = e.Params[i]
		}
		var name string
		if e.Default != nil && ft.In(i) != contextType {
			name = fmt.Sprintf("arg%d", i)
		} else {
			name = paramName(ft.In(i), p, q, taken)
		}
		params = append(params, name+" "+typ)
		if ft.In(i) == contextType {
			g.Ctx = name
			continue
		}
		args = append(args, ", "+name)
	}
	g.Params = strings.Join(params, ", ")
	g.Args = strings.Join(args, "")

	if ft.NumOut() == 2 {
		res, err := q.typeString(ft.Out(0))
		if err != nil {
			return g, fmt.Errorf("%s: %w", method.Name, err)
		}
		g.Result = res
		g.Results = "(" + res + ", error)"
	} else {
		g.Results = "error"
	}
	return g, nil
}

func paramName(t reflect.Type, p Param, q *qualifier, taken map[string]bool) string {
	var name string
	switch {
	case t == contextType:
		name = "ctx"
	case len(p.Names) != 0:
		name = strcase.ToLowerCamel(p.Names[0])
	case p.QueryMap:
		name = "query"
	case p.HeaderMap:
		name = "headers"
	case t == urlType:
		name = "u"
	default:
		name = "body"
	}
	if name == "" || token.IsKeyword(name) || q.hasName(name) || name == "c" {
		name += "Arg"
	}
	base := name
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	taken[name] = true
	return name
}

// qualifier renders types as Go source, collecting imports.
type qualifier struct {
	localPath string
	byPath    map[string]string
	names     map[string]bool
}

func newQualifier(localPath string) *qualifier {
	return &qualifier{
		localPath: localPath,
		byPath:    make(map[string]string),
		names:     make(map[string]bool),
	}
}

// use returns the name the package is imported with.
func (q *qualifier) use(pkgPath, name string) string {
	if n, has := q.byPath[pkgPath]; has {
		return n
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, name)
	base := name
	for i := 2; q.names[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	q.byPath[pkgPath] = name
	q.names[name] = true
	return name
}

func (q *qualifier) hasName(name string) bool {
	return q.names[name]
}

func (q *qualifier) imports() []genImport {
	result := make([]genImport, 0, len(q.byPath))
	for p, n := range q.byPath {
		result = append(result, genImport{Name: n, Path: p, Renamed: n != path.Base(p)})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result
}

func (q *qualifier) typeString(t reflect.Type) (string, error) {
	if t.Name() != "" {
		if strings.Contains(t.Name(), "[") {
			return "", fmt.Errorf("parameterized types unsupported: %s", t)
		}
		if t.PkgPath() == "" || t.PkgPath() == q.localPath {
			return t.Name(), nil
		}
		pkgName := path.Base(t.PkgPath())
		if isVersionSuffix(pkgName) {
			pkgName = path.Base(path.Dir(t.PkgPath()))
		}
		return q.use(t.PkgPath(), pkgName) + "." + t.Name(), nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		elem, err := q.typeString(t.Elem())
		return "*" + elem, err
	case reflect.Slice:
		elem, err := q.typeString(t.Elem())
		return "[]" + elem, err
	case reflect.Array:
		elem, err := q.typeString(t.Elem())
		return fmt.Sprintf("[%d]%s", t.Len(), elem), err
	case reflect.Map:
		key, err := q.typeString(t.Key())
		if err != nil {
			return "", err
		}
		elem, err := q.typeString(t.Elem())
		return "map[" + key + "]" + elem, err
	case reflect.Chan:
		elem, err := q.typeString(t.Elem())
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + elem, err
		case reflect.SendDir:
			return "chan<- " + elem, err
		}
		return "chan " + elem, err
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "interface{}", nil
		}
	}
	return "", fmt.Errorf("unnamed type %s unsupported", t)
}

func isVersionSuffix(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
