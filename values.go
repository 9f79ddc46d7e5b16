package restface

// orderedValues is a multi-valued map remembering insertion order of keys.
// A key may be present with no values.
type orderedValues struct {
	keys   []string
	values map[string][]string
}

func newOrderedValues() orderedValues {
	return orderedValues{values: make(map[string][]string)}
}

func (o *orderedValues) has(key string) bool {
	_, has := o.values[key]
	return has
}

func (o *orderedValues) get(key string) []string {
	return o.values[key]
}

// set replaces values of the key keeping its position.
func (o *orderedValues) set(key string, values []string) {
	if !o.has(key) {
		o.keys = append(o.keys, key)
	}
	o.values[key] = append([]string{}, values...)
}

func (o *orderedValues) add(key string, values ...string) {
	if !o.has(key) {
		o.keys = append(o.keys, key)
	}
	o.values[key] = append(o.values[key], values...)
}

func (o *orderedValues) del(key string) {
	if !o.has(key) {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *orderedValues) clone() orderedValues {
	c := orderedValues{
		keys:   append([]string(nil), o.keys...),
		values: make(map[string][]string, len(o.values)),
	}
	for k, v := range o.values {
		c.values[k] = append([]string{}, v...)
	}
	return c
}
