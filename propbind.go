// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package propbind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"

	"github.com/z5labs/propbind/internal/noop"
	"github.com/z5labs/propbind/resource"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTagName is the struct tag read by a Binder unless configured otherwise.
const DefaultTagName = "prop"

const instrumentationName = "github.com/z5labs/propbind"

// Option configures a Binder.
type Option func(*Binder)

// WithLoader sets the resource.Loader used to resolve resource names.
//
// Default: resource.FromFS(os.DirFS("."))
func WithLoader(l resource.Loader) Option {
	return func(b *Binder) {
		b.loader = l
	}
}

// WithLogger sets the logger used for debug diagnostics. Errors are
// always returned and never logged.
func WithLogger(log *slog.Logger) Option {
	return func(b *Binder) {
		b.log = log
	}
}

// WithTracerProvider sets the trace.TracerProvider used to trace each bind.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Binder) {
		b.tracer = tp.Tracer(instrumentationName)
	}
}

// LenientBool controls how bool fields treat values other than "true" and
// "false". By default such values are reported as a CoercionError. When
// enabled, they are silently bound as false, which matches how Java's
// Boolean.valueOf reads .properties files.
func LenientBool(enabled bool) Option {
	return func(b *Binder) {
		b.coercer.lenientBool = enabled
	}
}

// TagName sets the struct tag holding resource names and keys.
//
// Default: prop
func TagName(name string) Option {
	return func(b *Binder) {
		b.tag = name
	}
}

// Binder fills struct fields from key value resources.
type Binder struct {
	loader  resource.Loader
	log     *slog.Logger
	tracer  trace.Tracer
	tag     string
	coercer coercer
}

// New returns a Binder configured with the given options.
func New(opts ...Option) *Binder {
	b := &Binder{
		loader: resource.FromFS(os.DirFS(".")),
		log:    noop.Logger(),
		tracer: otel.GetTracerProvider().Tracer(instrumentationName),
		tag:    DefaultTagName,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind is a shorthand for New(opts...).Bind(ctx, v).
func Bind(ctx context.Context, v any, opts ...Option) error {
	return New(opts...).Bind(ctx, v)
}

// InvalidTargetError occurs when a bindable struct is passed by value
// and therefore cannot be modified.
type InvalidTargetError struct {
	Type reflect.Type
}

// Error implements the error interface.
func (e InvalidTargetError) Error() string {
	return fmt.Sprintf("propbind: cannot bind into non-pointer %s", e.Type)
}

// ResourceLoadError occurs when the resource backing a type could not be
// loaded. No field is modified when this is returned.
type ResourceLoadError struct {
	Resource string
	Cause    error
}

// Error implements the error interface.
func (e ResourceLoadError) Error() string {
	return fmt.Sprintf("propbind: failed to load resource %s: %s", e.Resource, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e ResourceLoadError) Unwrap() error {
	return e.Cause
}

// CoercionError occurs when a resource value cannot be converted into
// the type of the field it is bound to.
type CoercionError struct {
	Field  string
	Key    string
	Raw    string
	Target reflect.Type
	Cause  error
}

// Error implements the error interface.
func (e CoercionError) Error() string {
	return fmt.Sprintf("propbind: failed to coerce %q from key %s into field %s of type %s: %s", e.Raw, e.Key, e.Field, e.Target, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e CoercionError) Unwrap() error {
	return e.Cause
}

type assignment struct {
	field *Field
	value reflect.Value
}

// Bind fills the tagged fields of the struct v points to.
//
// Bind returns nil without doing anything when v is nil, a nil pointer,
// not a struct, or a struct without a Resource field or tagged fields.
// A bindable struct passed by value yields an InvalidTargetError.
//
// The resource is loaded once before any field is touched. A load failure
// is returned as a ResourceLoadError. Every value is coerced before any is
// assigned, so if one or more CoercionErrors are returned, joined with
// errors.Join, v is left unmodified.
func (b *Binder) Bind(ctx context.Context, v any) (err error) {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	t := rv.Type()
	if t.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
		t = rv.Type()
	}

	s := SchemaOf(t, b.tag)
	if !s.Bindable() {
		b.log.DebugContext(ctx, "type is not bindable", slog.String("type", t.String()))
		return nil
	}
	if len(s.Fields) == 0 {
		b.log.DebugContext(ctx, "type has no bindable fields", slog.String("type", t.String()))
		return nil
	}
	if !rv.CanSet() {
		return InvalidTargetError{Type: t}
	}

	spanCtx, span := b.tracer.Start(ctx, "propbind.Bind", trace.WithAttributes(
		attribute.String("propbind.type", t.String()),
		attribute.String("propbind.resource", s.Resource),
		attribute.Int("propbind.fields", len(s.Fields)),
	))
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}()

	m, err := b.loader.Load(spanCtx, s.Resource)
	if err != nil {
		return ResourceLoadError{Resource: s.Resource, Cause: err}
	}

	assignments := make([]assignment, 0, len(s.Fields))
	var errs []error
	for i := range s.Fields {
		f := &s.Fields[i]

		raw, ok := m.Get(f.Key)
		if !ok {
			b.log.DebugContext(spanCtx, "key not found", slog.String("field", f.Name), slog.String("key", f.Key))
			continue
		}

		val, ok, err := b.coercer.coerce(f.Kind, raw, f.elem())
		if err != nil {
			errs = append(errs, CoercionError{
				Field:  f.Name,
				Key:    f.Key,
				Raw:    raw,
				Target: f.Type,
				Cause:  err,
			})
			continue
		}
		if !ok {
			b.log.DebugContext(spanCtx, "no coercion from string", slog.String("field", f.Name), slog.String("type", f.Type.String()))
			continue
		}
		assignments = append(assignments, assignment{field: f, value: val})
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, a := range assignments {
		fv := rv.FieldByIndex(a.field.index)
		if a.field.ptr {
			p := reflect.New(a.field.elem())
			p.Elem().Set(a.value)
			fv.Set(p)
			continue
		}
		fv.Set(a.value)
	}
	span.SetAttributes(attribute.Int("propbind.bound", len(assignments)))
	return nil
}
