// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/z5labs/propbind/properties"

	"github.com/spf13/cobra"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// UnknownOutputError occurs when --output names an unsupported format.
type UnknownOutputError struct {
	Output string
}

// Error implements the error interface.
func (e UnknownOutputError) Error() string {
	return fmt.Sprintf("unknown output format: %s", e.Output)
}

func (a *app) dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump NAME...",
		Short: "Print every key value pair of the named resources in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), a.v.GetString(flagOutput), args, ms)
		},
	}
}

func write(w io.Writer, output string, names []string, ms []*properties.Map) error {
	switch output {
	case "text":
		return writeText(w, names, ms)
	case "json":
		return writeJson(w, names, ms)
	case "yaml":
		return writeYaml(w, names, ms)
	default:
		return UnknownOutputError{Output: output}
	}
}

func writeText(w io.Writer, names []string, ms []*properties.Map) error {
	var errs []error
	for i, m := range ms {
		if len(ms) > 1 {
			if i > 0 {
				_, err := io.WriteString(w, "\n")
				errs = append(errs, err)
			}
			_, err := fmt.Fprintf(w, "# %s\n", names[i])
			errs = append(errs, err)
		}
		_, err := io.WriteString(w, m.String())
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func writeJson(w io.Writer, names []string, ms []*properties.Map) error {
	out := orderedmap.New[string, *properties.Map]()
	for i, m := range ms {
		out.Set(names[i], m)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeYaml(w io.Writer, names []string, ms []*properties.Map) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for i, m := range ms {
		pairs := &yaml.Node{Kind: yaml.MappingNode}
		m.Each(func(k, v string) bool {
			pairs.Content = append(pairs.Content, yamlStr(k), yamlStr(v))
			return true
		})
		doc.Content = append(doc.Content, yamlStr(names[i]), pairs)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(doc)
	if err != nil {
		return err
	}
	return enc.Close()
}

func yamlStr(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
