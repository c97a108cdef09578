// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/z5labs/propbind/internal/ioutil"
	"github.com/z5labs/propbind/properties"
)

// DefaultMaxSize is the default upper bound on a resource's size.
const DefaultMaxSize int64 = 4 << 20

// FSOption configures an FS loader.
type FSOption func(*FS)

// FSFormat forces every resource to be decoded as f, regardless of
// its extension.
func FSFormat(f Format) FSOption {
	return func(l *FS) {
		l.format = f
	}
}

// FSMaxSize sets the maximum number of bytes read from a single resource.
// A non-positive n disables the limit.
func FSMaxSize(n int64) FSOption {
	return func(l *FS) {
		l.maxSize = n
	}
}

// FS loads resources from an fs.FS, such as an embed.FS or os.DirFS.
type FS struct {
	fsys    fs.FS
	format  Format
	maxSize int64
}

// FromFS returns a Loader which resolves resource names against fsys.
// A leading slash in a resource name is ignored.
func FromFS(fsys fs.FS, opts ...FSOption) *FS {
	l := &FS{
		fsys:    fsys,
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements the Loader interface.
func (l *FS) Load(ctx context.Context, name string) (*properties.Map, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	p := strings.TrimPrefix(name, "/")
	if !fs.ValidPath(p) {
		return nil, ReadError{Name: name, Cause: fs.ErrInvalid}
	}

	f, err := l.fsys.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NotFoundError{Name: name, Cause: err}
	}
	if err != nil {
		return nil, ReadError{Name: name, Cause: err}
	}

	b, err := ioutil.ReadAllAndTryClose(f, l.maxSize)
	if err != nil {
		return nil, ReadError{Name: name, Cause: err}
	}

	format := l.format
	if format == "" {
		format = FormatOf(name)
	}
	return decode(name, format, b)
}
