// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package propbind binds flat string key value resources, such as
// .properties files, onto the fields of a struct using struct tags.
//
// # Declaring a bindable type
//
// A struct becomes bindable by carrying a [Resource] field whose tag names
// the resource to load. Every exported field tagged with a key is then
// filled from that resource:
//
//	type Server struct {
//	    propbind.Resource `prop:"config/server.properties"`
//
//	    Host    string        `prop:"server.host"`
//	    Port    int           `prop:"server.port"`
//	    Debug   *bool         `prop:"server.debug"`
//	    Timeout time.Duration `prop:"server.timeout"`
//	    Sep     rune          `prop:"server.separator,char"`
//	}
//
// Structs without a [Resource] field, or without any tagged fields, are
// silently ignored by [Bind].
//
// # Binding
//
//	var srv Server
//	err := propbind.Bind(ctx, &srv, propbind.WithLoader(resource.FromFS(configFS)))
//
// The resource is loaded once, before any field is touched. Keys missing
// from the resource leave their fields untouched. Values are converted
// according to the field's [Kind]; if any conversion fails no field is
// assigned and every failure is reported as a [CoercionError].
//
// # Unknown types
//
// Fields whose type has no [Kind] fall back to [encoding.TextUnmarshaler]
// or [time.Duration] parsing when applicable. Otherwise the raw string is
// assigned as is when the field type is convertible from a string, and
// the field is left untouched if it is not.
package propbind
