// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package propbind

import (
	"reflect"
	"strings"
	"sync"
)

// Resource marks a struct as bindable. The tag on the Resource field
// holds the name of the resource the struct is bound from.
//
//	type Config struct {
//	    propbind.Resource `prop:"app/config.properties"`
//	}
//
// A blank field, e.g. `_ propbind.Resource`, works the same as embedding.
type Resource struct{}

var resourceType = reflect.TypeOf(Resource{})

// Field describes a single bindable struct field.
type Field struct {
	// Name is the Go name of the field.
	Name string

	// Key is the resource key the field is bound from.
	Key string

	// Kind selects the coercion applied to the raw value.
	Kind Kind

	// Type is the declared field type.
	Type reflect.Type

	index []int
	ptr   bool
}

// elem is the type coerced into, i.e. T for a field of type *T.
func (f Field) elem() reflect.Type {
	if f.ptr {
		return f.Type.Elem()
	}
	return f.Type
}

// Schema is the binding metadata derived from a struct type.
// It is immutable once built.
type Schema struct {
	Type     reflect.Type
	Resource string
	Fields   []Field
}

// Bindable reports whether the type carries a resource name.
func (s *Schema) Bindable() bool {
	return s.Resource != ""
}

type schemaKey struct {
	typ reflect.Type
	tag string
}

var schemas sync.Map

// SchemaOf returns the binding metadata of the struct type t using the
// given tag name. Results are cached per type and tag. A non-struct type
// yields an empty, non bindable Schema.
func SchemaOf(t reflect.Type, tag string) *Schema {
	k := schemaKey{typ: t, tag: tag}
	if s, ok := schemas.Load(k); ok {
		return s.(*Schema)
	}
	s, _ := schemas.LoadOrStore(k, buildSchema(t, tag))
	return s.(*Schema)
}

func buildSchema(t reflect.Type, tag string) *Schema {
	s := &Schema{Type: t}
	if t.Kind() != reflect.Struct {
		return s
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type == resourceType {
			if s.Resource == "" {
				s.Resource = strings.TrimSpace(sf.Tag.Get(tag))
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(sf.Tag.Get(tag), ",")
		name = strings.TrimSpace(name)
		if name == "" || name == "-" {
			continue
		}

		f := Field{
			Name:  sf.Name,
			Key:   name,
			Type:  sf.Type,
			index: sf.Index,
			ptr:   sf.Type.Kind() == reflect.Pointer,
		}
		f.Kind = kindOf(f.elem(), hasOption(opts, "char"))
		s.Fields = append(s.Fields, f)
	}
	return s
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if strings.TrimSpace(opt) == want {
			return true
		}
	}
	return false
}
