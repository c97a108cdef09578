// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package key provides the key types used to flatten nested documents
// into dotted property keys.
package key

import "strings"

// Keyer is implemented by every key type.
type Keyer interface {
	Key() string
}

// Name is a single key segment.
type Name string

// Key implements the [Keyer] interface.
func (k Name) Key() string {
	return string(k)
}

// Chain is a path of nested key segments, e.g. server.http.port.
type Chain []Keyer

// Key implements the [Keyer] interface. Segments are joined with a dot.
func (c Chain) Key() string {
	ss := make([]string, len(c))
	for i, k := range c {
		ss[i] = k.Key()
	}
	return strings.Join(ss, ".")
}

// Append returns a new Chain with k as its last segment. The receiver
// is never modified, so sibling chains never share a backing array.
func (c Chain) Append(k Keyer) Chain {
	next := make(Chain, len(c), len(c)+1)
	copy(next, c)
	return append(next, k)
}
