// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package properties provides an ordered string key value mapping along
// with helpers for assembling one programmatically.
package properties

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Pair is a single key value entry of a Map.
type Pair struct {
	Key   string
	Value string
}

// Map is an ordered association of unique string keys to string values.
// Keys are kept in the order they were first set. Setting an existing
// key replaces its value but keeps its original position.
//
// The zero value is an empty Map ready to use and a nil *Map can be
// read from as if it were empty.
type Map struct {
	om *orderedmap.OrderedMap[string, string]
}

// New returns an empty Map.
func New() *Map {
	return &Map{om: orderedmap.New[string, string]()}
}

// Of returns a Map containing the given pairs, in order.
func Of(pairs ...Pair) *Map {
	m := New()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

func (m *Map) init() {
	if m.om == nil {
		m.om = orderedmap.New[string, string]()
	}
}

// Set associates value with key.
func (m *Map) Set(key, value string) {
	m.init()
	m.om.Set(key, value)
}

// Get returns the value associated with key and whether it was present.
func (m *Map) Get(key string) (string, bool) {
	if m == nil || m.om == nil {
		return "", false
	}
	return m.om.Get(key)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if m == nil || m.om == nil {
		return false
	}
	_, ok := m.om.Delete(key)
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil || m.om == nil {
		return 0
	}
	return m.om.Len()
}

// Each calls f for every entry in order until f returns false.
func (m *Map) Each(f func(key, value string) bool) {
	if m == nil || m.om == nil {
		return
	}
	for p := m.om.Oldest(); p != nil; p = p.Next() {
		if !f(p.Key, p.Value) {
			return
		}
	}
}

// Keys returns the keys in order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.Len())
	m.Each(func(k, _ string) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Pairs returns the entries in order.
func (m *Map) Pairs() []Pair {
	pairs := make([]Pair, 0, m.Len())
	m.Each(func(k, v string) bool {
		pairs = append(pairs, Pair{Key: k, Value: v})
		return true
	})
	return pairs
}

// ToMap copies the entries into a builtin map.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string, m.Len())
	m.Each(func(k, v string) bool {
		out[k] = v
		return true
	})
	return out
}

// Clone returns an independent copy of m. Cloning a nil *Map returns nil.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	c := New()
	m.Each(func(k, v string) bool {
		c.Set(k, v)
		return true
	})
	return c
}

// Equal reports whether m and other hold the same associations.
// Ordering is not taken into account.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	equal := true
	m.Each(func(k, v string) bool {
		ov, ok := other.Get(k)
		equal = ok && ov == v
		return equal
	})
	return equal
}

// String renders the entries as key=value lines.
func (m *Map) String() string {
	var sb strings.Builder
	m.Each(func(k, v string) bool {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v)
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

// MarshalJSON implements the json.Marshaler interface. Entries are
// written as a JSON object in order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil || m.om == nil {
		return []byte("{}"), nil
	}
	return m.om.MarshalJSON()
}
