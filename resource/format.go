// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/z5labs/propbind/properties"
	"github.com/z5labs/propbind/resource/key"

	javaprops "github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// Format identifies how the content of a resource is encoded.
type Format string

const (
	Properties Format = "properties"
	YAML       Format = "yaml"
	JSON       Format = "json"
)

// FormatOf picks the Format for a resource name based on its extension.
// Unknown or missing extensions are treated as Properties.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return YAML
	case ".json":
		return JSON
	default:
		return Properties
	}
}

// listSeparator joins the items of a sequence into a single value.
const listSeparator = ","

var (
	errNotAMapping    = errors.New("document root must be a mapping")
	errNestedSequence = errors.New("sequences may only contain scalar values")
	errTrailingData   = errors.New("unexpected data after top-level value")
	errDuplicateKey   = errors.New("key is defined more than once")
	errInvalidMerge   = errors.New("merge value must be a mapping or a sequence of mappings")
)

// Decode parses b according to f. An empty document, or one whose root is
// null, yields an empty Map. Distinct paths that flatten to the same key
// are reported as an error.
func Decode(f Format, b []byte) (*properties.Map, error) {
	switch f {
	case Properties:
		return decodeProperties(b)
	case YAML:
		return decodeYaml(b)
	case JSON:
		return decodeJson(b)
	default:
		return nil, UnsupportedFormatError{Format: f}
	}
}

func decode(name string, f Format, b []byte) (*properties.Map, error) {
	m, err := Decode(f, b)
	if err == nil {
		return m, nil
	}
	var uerr UnsupportedFormatError
	if errors.As(err, &uerr) {
		return nil, err
	}
	return nil, InvalidFormatError{Name: name, Format: f, Cause: err}
}

func decodeProperties(b []byte) (*properties.Map, error) {
	l := &javaprops.Loader{
		Encoding:         javaprops.ISO_8859_1,
		DisableExpansion: true,
	}
	p, err := l.LoadBytes(b)
	if err != nil {
		return nil, err
	}

	m := properties.New()
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		m.Set(k, v)
	}
	return m, nil
}

func decodeYaml(b []byte) (*properties.Map, error) {
	var doc yaml.Node
	err := yaml.Unmarshal(b, &doc)
	if err != nil {
		return nil, err
	}

	m := properties.New()
	if doc.Kind == 0 || isYamlNull(&doc) {
		return m, nil
	}
	err = walkYaml(&doc, nil, m)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func walkYaml(n *yaml.Node, chain key.Chain, m *properties.Map) error {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			err := walkYaml(c, chain, m)
			if err != nil {
				return err
			}
		}
		return nil
	case yaml.AliasNode:
		return walkYaml(n.Alias, chain, m)
	case yaml.MappingNode:
		pairs, err := yamlPairs(n)
		if err != nil {
			if len(chain) == 0 {
				return err
			}
			return fmt.Errorf("%s: %w", chain.Key(), err)
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			k, v := pairs[i], pairs[i+1]
			err := walkYaml(v, chain.Append(key.Name(k.Value)), m)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if len(chain) == 0 {
		return errNotAMapping
	}
	k := chain.Key()
	s, err := yamlString(n, true)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	if m.Has(k) {
		return fmt.Errorf("%s: %w", k, errDuplicateKey)
	}
	m.Set(k, s)
	return nil
}

func isYamlNull(doc *yaml.Node) bool {
	if len(doc.Content) != 1 {
		return false
	}
	n := doc.Content[0]
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// yamlPairs returns the key and value nodes of a mapping with any merge
// keys ("<<") expanded in place. Keys written in the mapping itself take
// precedence over merged keys, and earlier merge sources take precedence
// over later ones.
func yamlPairs(n *yaml.Node) ([]*yaml.Node, error) {
	seen := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.ShortTag() != "!!merge" {
			seen[k.Value] = true
		}
	}

	pairs := make([]*yaml.Node, 0, len(n.Content))
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.ShortTag() != "!!merge" {
			pairs = append(pairs, k, v)
			continue
		}

		sources := []*yaml.Node{v}
		if v = yamlDeref(v); v.Kind == yaml.SequenceNode {
			sources = v.Content
		}
		for _, src := range sources {
			src = yamlDeref(src)
			if src.Kind != yaml.MappingNode {
				return nil, errInvalidMerge
			}
			merged, err := yamlPairs(src)
			if err != nil {
				return nil, err
			}
			for j := 0; j+1 < len(merged); j += 2 {
				mk := merged[j]
				if seen[mk.Value] {
					continue
				}
				seen[mk.Value] = true
				pairs = append(pairs, mk, merged[j+1])
			}
		}
	}
	return pairs, nil
}

func yamlDeref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func yamlString(n *yaml.Node, allowSeq bool) (string, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlString(n.Alias, allowSeq)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		if !allowSeq {
			return "", errNestedSequence
		}
		ss := make([]string, len(n.Content))
		for i, c := range n.Content {
			s, err := yamlString(c, false)
			if err != nil {
				return "", err
			}
			ss[i] = s
		}
		return strings.Join(ss, listSeparator), nil
	default:
		return "", errNestedSequence
	}
}

func decodeJson(b []byte) (*properties.Map, error) {
	m := properties.New()
	if len(bytes.TrimSpace(b)) == 0 {
		return m, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v any
	err := dec.Decode(&v)
	if err != nil {
		return nil, err
	}
	_, err = dec.Token()
	if err != io.EOF {
		return nil, errTrailingData
	}

	if v == nil {
		return m, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotAMapping
	}
	err = walkJson(obj, nil, m)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// JSON objects are unordered, so keys are visited in sorted order.
func walkJson(obj map[string]any, chain key.Chain, m *properties.Map) error {
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		next := chain.Append(key.Name(k))

		sub, ok := obj[k].(map[string]any)
		if ok {
			err := walkJson(sub, next, m)
			if err != nil {
				return err
			}
			continue
		}

		s, err := jsonString(obj[k], true)
		if err != nil {
			return fmt.Errorf("%s: %w", next.Key(), err)
		}
		if m.Has(next.Key()) {
			return fmt.Errorf("%s: %w", next.Key(), errDuplicateKey)
		}
		m.Set(next.Key(), s)
	}
	return nil
}

func jsonString(v any, allowSeq bool) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case []any:
		if !allowSeq {
			return "", errNestedSequence
		}
		ss := make([]string, len(x))
		for i, item := range x {
			s, err := jsonString(item, false)
			if err != nil {
				return "", err
			}
			ss[i] = s
		}
		return strings.Join(ss, listSeparator), nil
	default:
		return "", errNestedSequence
	}
}
