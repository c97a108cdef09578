// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package properties

// Builder accumulates keys and values independently of each other and
// pairs them up positionally once Build is called. Keys and values are
// free to differ in length until then.
//
// The zero value is ready to use. A Builder must not be mutated
// concurrently.
type Builder struct {
	keys   []string
	values []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddKey appends a single key.
func (b *Builder) AddKey(key string) *Builder {
	b.keys = append(b.keys, key)
	return b
}

// AddKeyPtr appends the key referenced by key. A nil key is ignored.
func (b *Builder) AddKeyPtr(key *string) *Builder {
	if key == nil {
		return b
	}
	return b.AddKey(*key)
}

// AddKeys appends a batch of keys.
func (b *Builder) AddKeys(keys ...string) *Builder {
	if len(keys) == 0 {
		return b
	}
	b.keys = append(b.keys, keys...)
	return b
}

// AddValue appends a single value.
func (b *Builder) AddValue(value string) *Builder {
	b.values = append(b.values, value)
	return b
}

// AddValuePtr appends the value referenced by value. A nil value is ignored.
func (b *Builder) AddValuePtr(value *string) *Builder {
	if value == nil {
		return b
	}
	return b.AddValue(*value)
}

// AddValues appends a batch of values.
func (b *Builder) AddValues(values ...string) *Builder {
	if len(values) == 0 {
		return b
	}
	b.values = append(b.values, values...)
	return b
}

// AddKeyValue appends key and value as a pair.
func (b *Builder) AddKeyValue(key, value string) *Builder {
	return b.AddKey(key).AddValue(value)
}

// AddKeysValues appends both batches. They are not paired with each
// other until Build.
func (b *Builder) AddKeysValues(keys, values []string) *Builder {
	return b.AddKeys(keys...).AddValues(values...)
}

// AddMap appends every entry of m as a key value pair, in order.
func (b *Builder) AddMap(m *Map) *Builder {
	m.Each(func(k, v string) bool {
		b.AddKeyValue(k, v)
		return true
	})
	return b
}

// Clear removes all keys and values.
func (b *Builder) Clear() *Builder {
	return b.ClearKeys().ClearValues()
}

// ClearKeys removes all keys.
func (b *Builder) ClearKeys() *Builder {
	b.keys = b.keys[:0]
	return b
}

// ClearValues removes all values.
func (b *Builder) ClearValues() *Builder {
	b.values = b.values[:0]
	return b
}

// Build pairs the i-th key with the i-th value. Keys without a matching
// value map to an empty string and surplus values are dropped.
func (b *Builder) Build() *Map {
	m := New()
	for i, k := range b.keys {
		var v string
		if i < len(b.values) {
			v = b.values[i]
		}
		m.Set(k, v)
	}
	return m
}
