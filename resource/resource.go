// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource loads named resources into ordered key value mappings.
//
// A resource name is a path-like string, e.g. "app/config.properties".
// Its extension selects the format used to decode it:
//
//   - .yaml, .yml: YAML documents, nested mappings flattened into dotted keys
//   - .json: JSON objects, flattened the same way
//   - anything else: Java style .properties files
//
// Loading is all-or-nothing: a Loader either returns the complete mapping
// or an error.
package resource

import (
	"context"
	"fmt"

	"github.com/z5labs/propbind/properties"
)

// Loader resolves a resource name into its key value mapping.
type Loader interface {
	Load(ctx context.Context, name string) (*properties.Map, error)
}

// LoaderFunc is a functional implementation of the Loader interface.
type LoaderFunc func(context.Context, string) (*properties.Map, error)

// Load implements the Loader interface.
func (f LoaderFunc) Load(ctx context.Context, name string) (*properties.Map, error) {
	return f(ctx, name)
}

// NotFoundError occurs when no resource exists for the given name.
type NotFoundError struct {
	Name  string
	Cause error
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.Name)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e NotFoundError) Unwrap() error {
	return e.Cause
}

// ReadError occurs when a resource exists but could not be read.
type ReadError struct {
	Name  string
	Cause error
}

// Error implements the error interface.
func (e ReadError) Error() string {
	return fmt.Sprintf("failed to read resource %s: %s", e.Name, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e ReadError) Unwrap() error {
	return e.Cause
}

// InvalidFormatError occurs when the resource content is malformed
// for its format.
type InvalidFormatError struct {
	Name   string
	Format Format
	Cause  error
}

// Error implements the error interface.
func (e InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid %s in resource %s: %s", e.Format, e.Name, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidFormatError) Unwrap() error {
	return e.Cause
}

// UnsupportedFormatError occurs when a loader is explicitly configured
// with a format it does not know how to decode.
type UnsupportedFormatError struct {
	Format Format
}

// Error implements the error interface.
func (e UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported resource format: %q", string(e.Format))
}
