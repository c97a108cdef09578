// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// KeyNotFoundError occurs when a requested key is absent from a resource.
type KeyNotFoundError struct {
	Resource string
	Key      string
}

// Error implements the error interface.
func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %s not found in %s", e.Key, e.Resource)
}

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME KEY...",
		Short: "Print the raw values of keys in a resource, one per line",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, keys := args[0], args[1:]

			ms, err := a.load(cmd.Context(), []string{name})
			if err != nil {
				return err
			}

			for _, k := range keys {
				v, ok := ms[0].Get(k)
				if !ok {
					return KeyNotFoundError{Resource: name, Key: k}
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}
