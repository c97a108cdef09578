// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package properties

import (
	"maps"
	"slices"
)

// FromMap returns a Map holding the entries of m. Since builtin maps are
// unordered the keys are inserted in sorted order. A nil m returns nil.
func FromMap(m map[string]string) *Map {
	if m == nil {
		return nil
	}

	out := New()
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out.Set(k, m[k])
	}
	return out
}

// FromArrays pairs keys and values positionally. Keys without a matching
// value map to an empty string. A nil keys returns nil.
func FromArrays(keys, values []string) *Map {
	if keys == nil {
		return nil
	}
	return NewBuilder().AddKeysValues(keys, values).Build()
}

// FromRows builds a Map from rows where column 0 is the key and column 1,
// if present, is the value. Empty rows are skipped and any columns past
// the second are ignored. If no row contributes an entry, nil is returned.
func FromRows(rows ...[]string) *Map {
	var out *Map
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if out == nil {
			out = New()
		}

		var v string
		if len(row) >= 2 {
			v = row[1]
		}
		out.Set(row[0], v)
	}
	return out
}
