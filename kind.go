// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package propbind

import (
	"encoding"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

// Kind is the closed set of field representations a raw string value
// can be coerced into.
type Kind uint8

const (
	Unknown Kind = iota
	String
	Int
	Int64
	Int32
	Int16
	Int8
	Uint
	Uint64
	Uint32
	Uint16
	Uint8
	Float64
	Float32
	Bool
	Char
)

var kindNames = [...]string{
	Unknown: "unknown",
	String:  "string",
	Int:     "int",
	Int64:   "int64",
	Int32:   "int32",
	Int16:   "int16",
	Int8:    "int8",
	Uint:    "uint",
	Uint64:  "uint64",
	Uint32:  "uint32",
	Uint16:  "uint16",
	Uint8:   "uint8",
	Float64: "float64",
	Float32: "float32",
	Bool:    "bool",
	Char:    "char",
}

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	stringType          = reflect.TypeOf("")
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// KindOf returns the Kind used to coerce values into t. Types which
// implement encoding.TextUnmarshaler, time.Duration and every type
// outside of the table are Unknown.
func KindOf(t reflect.Type) Kind {
	return kindOf(t, false)
}

func kindOf(t reflect.Type, char bool) Kind {
	if char {
		switch t.Kind() {
		case reflect.Int32, reflect.Uint8, reflect.String:
			return Char
		}
	}
	if t == durationType || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return Unknown
	}

	switch t.Kind() {
	case reflect.String:
		return String
	case reflect.Int:
		return Int
	case reflect.Int64:
		return Int64
	case reflect.Int32:
		return Int32
	case reflect.Int16:
		return Int16
	case reflect.Int8:
		return Int8
	case reflect.Uint:
		return Uint
	case reflect.Uint64:
		return Uint64
	case reflect.Uint32:
		return Uint32
	case reflect.Uint16:
		return Uint16
	case reflect.Uint8:
		return Uint8
	case reflect.Float64:
		return Float64
	case reflect.Float32:
		return Float32
	case reflect.Bool:
		return Bool
	default:
		return Unknown
	}
}

var (
	// ErrEmptyChar is the cause of a CoercionError when an empty value
	// is bound to a char field.
	ErrEmptyChar = errors.New("empty value has no first character")

	// ErrInvalidBool is the cause of a CoercionError when a value other
	// than true or false, in any case, is bound to a bool field.
	ErrInvalidBool = errors.New(`expected "true" or "false"`)

	// ErrCharOverflow is the cause of a CoercionError when the first
	// character of a value does not fit into a byte field.
	ErrCharOverflow = errors.New("character does not fit into a byte")
)

type coercer struct {
	lenientBool bool
}

// coerce converts raw into a value of type t. The returned bool is false
// when t has no conversion from a string at all, in which case the field
// must be left untouched.
func (c coercer) coerce(kind Kind, raw string, t reflect.Type) (reflect.Value, bool, error) {
	var (
		v   any
		err error
	)
	switch kind {
	case String:
		v = raw
	case Int, Int64, Int32, Int16, Int8:
		v, err = strconv.ParseInt(raw, 10, t.Bits())
	case Uint, Uint64, Uint32, Uint16, Uint8:
		v, err = strconv.ParseUint(raw, 10, t.Bits())
	case Float64, Float32:
		v, err = strconv.ParseFloat(raw, t.Bits())
	case Bool:
		v, err = c.parseBool(raw)
	case Char:
		return parseChar(raw, t)
	default:
		return decodeFallback(raw, t)
	}
	if err != nil {
		return reflect.Value{}, true, err
	}
	return reflect.ValueOf(v).Convert(t), true, nil
}

func (c coercer) parseBool(raw string) (bool, error) {
	switch {
	case strings.EqualFold(raw, "true"):
		return true, nil
	case strings.EqualFold(raw, "false"), c.lenientBool:
		return false, nil
	default:
		return false, ErrInvalidBool
	}
}

func parseChar(raw string, t reflect.Type) (reflect.Value, bool, error) {
	r, size := utf8.DecodeRuneInString(raw)
	if size == 0 {
		return reflect.Value{}, true, ErrEmptyChar
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw[:size]).Convert(t), true, nil
	case reflect.Uint8:
		if r > 0xff {
			return reflect.Value{}, true, ErrCharOverflow
		}
		return reflect.ValueOf(uint8(r)).Convert(t), true, nil
	default:
		return reflect.ValueOf(r).Convert(t), true, nil
	}
}

var errInvalidDecodeCondition = errors.New("invalid decode condition")

// hookResult records what happened in the decode hook chain. The hook
// error is kept since mapstructure flattens it into a plain string.
type hookResult struct {
	matched bool
	err     error
}

// decodeFallback handles every type outside of the Kind table.
func decodeFallback(raw string, t reflect.Type) (reflect.Value, bool, error) {
	var res hookResult
	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: out.Interface(),
		DecodeHook: composeDecodeHooks(
			&res,
			textUnmarshalerHookFunc(),
			timeDurationHookFunc(),
		),
	})
	if err != nil {
		return reflect.Value{}, true, err
	}

	err = dec.Decode(raw)
	if res.matched {
		if res.err != nil {
			return reflect.Value{}, true, res.err
		}
		if err != nil {
			return reflect.Value{}, true, err
		}
		return out.Elem(), true, nil
	}
	if stringType.ConvertibleTo(t) {
		return reflect.ValueOf(raw).Convert(t), true, nil
	}
	return reflect.Value{}, false, nil
}

// composeDecodeHooks runs the first hook whose decode condition holds.
func composeDecodeHooks(res *hookResult, hs ...mapstructure.DecodeHookFunc) mapstructure.DecodeHookFuncValue {
	return func(f, t reflect.Value) (any, error) {
		for _, h := range hs {
			v, err := mapstructure.DecodeHookExec(h, f, t)
			if err == errInvalidDecodeCondition {
				continue
			}
			res.matched = true
			res.err = err
			return v, err
		}
		return f.Interface(), nil
	}
}

func textUnmarshalerHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return nil, errInvalidDecodeCondition
		}
		result := reflect.New(t).Interface()
		u, ok := result.(encoding.TextUnmarshaler)
		if !ok {
			return nil, errInvalidDecodeCondition
		}
		err := u.UnmarshalText([]byte(data.(string)))
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func timeDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType || f.Kind() != reflect.String {
			return nil, errInvalidDecodeCondition
		}
		return time.ParseDuration(data.(string))
	}
}
