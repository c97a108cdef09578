// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package ioutil

import (
	"errors"
	"fmt"
	"io"
)

// CloseError occurs when a resource was fully read but closing it failed.
type CloseError struct {
	Cause error
}

// Error implements the error interface.
func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close resource: %s", e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e CloseError) Unwrap() error {
	return e.Cause
}

// TooLargeError occurs when a resource exceeds the configured size limit.
type TooLargeError struct {
	Limit int64
}

// Error implements the error interface.
func (e TooLargeError) Error() string {
	return fmt.Sprintf("resource exceeds size limit of %d bytes", e.Limit)
}

// ReadAllAndTryClose reads r until EOF and closes it if it is an io.Closer.
// A positive limit caps the number of bytes read; exceeding it returns a
// TooLargeError.
func ReadAllAndTryClose(r io.Reader, limit int64) (_ []byte, err error) {
	defer tryClose(&err, r)

	if limit <= 0 {
		return io.ReadAll(r)
	}

	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, TooLargeError{Limit: limit}
	}
	return b, nil
}

func tryClose(err *error, r io.Reader) {
	c, ok := r.(io.Closer)
	if !ok {
		return
	}

	closeErr := c.Close()
	if closeErr == nil {
		return
	}
	*err = errors.Join(*err, CloseError{Cause: closeErr})
}
