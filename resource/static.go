// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"context"
	"io/fs"

	"github.com/z5labs/propbind/properties"
)

// Static is an in-memory Loader keyed by resource name. It is
// typically filled with mappings assembled by a properties.Builder.
type Static map[string]*properties.Map

// Load implements the Loader interface. The returned Map is a copy, so
// callers may modify it freely.
func (s Static) Load(ctx context.Context, name string) (*properties.Map, error) {
	m, ok := s[name]
	if !ok {
		return nil, NotFoundError{Name: name, Cause: fs.ErrNotExist}
	}
	if m == nil {
		return properties.New(), nil
	}
	return m.Clone(), nil
}
