// Package transform converts records between their wire form, where missing
// values are null, and their form shape, where missing values are "".
package transform

import "maps"

// ToEmptyStrings returns a copy of in with nil values replaced by "".
func ToEmptyStrings(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if v == nil {
			out[k] = ""
		} else {
			out[k] = v
		}
	}
	return out
}

// ToNullValues returns a copy of in with "" values replaced by nil.
func ToNullValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok && s == "" {
			out[k] = nil
		} else {
			out[k] = v
		}
	}
	return out
}

// EmptyIfNil dereferences p, treating nil as "".
func EmptyIfNil(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// NilIfEmpty is the inverse of EmptyIfNil.
func NilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WithFlattenedObject copies in and lifts the fields of the nested object
// under name to "name.field" keys. The nested object itself is dropped.
// Only one level is flattened.
func WithFlattenedObject(in map[string]any, name string) map[string]any {
	out := maps.Clone(in)
	if out == nil {
		out = map[string]any{}
	}
	nested, ok := in[name].(map[string]any)
	if !ok {
		return out
	}
	delete(out, name)
	for k, v := range nested {
		out[name+"."+k] = v
	}
	return out
}

// WithFlattenedObjects applies WithFlattenedObject to every element.
func WithFlattenedObjects(in []map[string]any, name string) []map[string]any {
	out := make([]map[string]any, len(in))
	for i, item := range in {
		out[i] = WithFlattenedObject(item, name)
	}
	return out
}
