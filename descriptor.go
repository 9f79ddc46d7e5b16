package restface

import (
	"reflect"
	"strings"

	"github.com/creachadair/mds/mapset"
)

// MethodDescriptor is metadata of one method, built once by Contract.
// It is not modified after NewClient returns.
type MethodDescriptor struct {
	key        string
	name       string
	funcType   reflect.Type
	returnType reflect.Type

	urlIndex        int
	bodyIndex       int
	bodyType        reflect.Type
	headerMapIndex  int
	queryMapIndex   int
	queryMapEncoded bool

	formParams      []string
	formParamSet    mapset.Set[string]
	indexToName     map[int][]string
	indexToExpander map[int]Expander
	skipped         mapset.Set[int]

	ignored  bool
	template *Template
}

func newMethodDescriptor(apiType reflect.Type, method reflect.Method) *MethodDescriptor {
	d := &MethodDescriptor{
		key:             methodKey(apiType, method),
		name:            method.Name,
		funcType:        method.Type,
		urlIndex:        -1,
		bodyIndex:       -1,
		headerMapIndex:  -1,
		queryMapIndex:   -1,
		formParamSet:    mapset.New[string](),
		indexToName:     make(map[int][]string),
		indexToExpander: make(map[int]Expander),
		skipped:         mapset.New[int](),
		template:        newTemplate(),
	}
	if method.Type.NumOut() == 2 {
		d.returnType = method.Type.Out(0)
	}
	d.template.descriptor = d
	return d
}

// methodKey identifies a method: "Type#Method(paramType,...)".
func methodKey(apiType reflect.Type, method reflect.Method) string {
	params := make([]string, 0, method.Type.NumIn())
	for i := 0; i < method.Type.NumIn(); i++ {
		params = append(params, method.Type.In(i).String())
	}
	return apiType.Name() + "#" + method.Name + "(" + strings.Join(params, ",") + ")"
}

// Key returns the unique key of the method.
func (d *MethodDescriptor) Key() string {
	return d.key
}

// Name returns the name of the Go method.
func (d *MethodDescriptor) Name() string {
	return d.name
}

// FuncType returns the type of the method without receiver.
func (d *MethodDescriptor) FuncType() reflect.Type {
	return d.funcType
}

// ReturnType returns the type of the first result, nil if the method
// returns only error.
func (d *MethodDescriptor) ReturnType() reflect.Type {
	return d.returnType
}

// BodyType returns the type of the body parameter, nil if there is none.
func (d *MethodDescriptor) BodyType() reflect.Type {
	return d.bodyType
}

// FormParams returns names of form parameters in declaration order.
func (d *MethodDescriptor) FormParams() []string {
	return append([]string(nil), d.formParams...)
}

// Ignored reports whether the method was declared with Ignore.
func (d *MethodDescriptor) Ignored() bool {
	return d.ignored
}

// Template returns a copy of the skeleton template.
func (d *MethodDescriptor) Template() *Template {
	return d.template.Clone()
}

// alreadyProcessed reports whether the position has a role.
func (d *MethodDescriptor) alreadyProcessed(i int) bool {
	if _, has := d.indexToName[i]; has {
		return true
	}
	return i == d.urlIndex || i == d.bodyIndex || i == d.headerMapIndex ||
		i == d.queryMapIndex || d.skipped.Has(i)
}

func (d *MethodDescriptor) addFormParam(name string) {
	if d.formParamSet.Has(name) {
		return
	}
	d.formParamSet.Add(name)
	d.formParams = append(d.formParams, name)
}
