// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package propbind

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"testing"
	"testing/fstest"
	"time"

	"github.com/z5labs/propbind/properties"
	"github.com/z5labs/propbind/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	keyAge    = "properties.age"
	keyName   = "properties.name"
	valueAge  = "10"
	valueName = "Hello!"
)

type bean struct {
	Resource `prop:"mcaligares/modules/properties/test.properties"`

	Name *string `prop:"properties.name"`
	Age  *int    `prop:"properties.age"`
}

type notBindable struct {
	Name string `prop:"properties.name"`
}

type noFields struct {
	_ Resource `prop:"app.properties"`

	Name string
}

type values struct {
	_ Resource `prop:"app.properties"`

	Name   string `prop:"name"`
	Age    int    `prop:"age"`
	Active bool   `prop:"active"`
}

func testdata() resource.Loader {
	return resource.FromFS(os.DirFS("testdata"))
}

func staticLoader(pairs ...string) resource.Loader {
	m := properties.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return resource.Static{"app.properties": m}
}

type countingLoader struct {
	resource.Loader
	calls int
}

func (l *countingLoader) Load(ctx context.Context, name string) (*properties.Map, error) {
	l.calls++
	return l.Loader.Load(ctx, name)
}

func TestBind(t *testing.T) {
	t.Run("will not modify the value", func(t *testing.T) {
		t.Run("if it is nil", func(t *testing.T) {
			l := &countingLoader{Loader: testdata()}

			err := Bind(context.Background(), nil, WithLoader(l))
			if !assert.Nil(t, err) {
				return
			}

			var b *bean
			err = Bind(context.Background(), b, WithLoader(l))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 0, l.calls) {
				return
			}
		})

		t.Run("if it is not a struct", func(t *testing.T) {
			l := &countingLoader{Loader: testdata()}

			n := 5
			err := Bind(context.Background(), &n, WithLoader(l))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 5, n) {
				return
			}
			if !assert.Equal(t, 0, l.calls) {
				return
			}
		})

		t.Run("if the type has no resource", func(t *testing.T) {
			l := &countingLoader{Loader: staticLoader(keyName, valueName)}

			v := notBindable{Name: "before"}
			err := Bind(context.Background(), &v, WithLoader(l))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "before", v.Name) {
				return
			}
			if !assert.Equal(t, 0, l.calls) {
				return
			}
		})

		t.Run("if the type has no bindable fields", func(t *testing.T) {
			l := &countingLoader{Loader: staticLoader(keyName, valueName)}

			v := noFields{Name: "before"}
			err := Bind(context.Background(), &v, WithLoader(l))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "before", v.Name) {
				return
			}
			if !assert.Equal(t, 0, l.calls) {
				return
			}
		})

		t.Run("if the type is not bindable and passed by value", func(t *testing.T) {
			err := Bind(context.Background(), notBindable{}, WithLoader(testdata()))
			if !assert.Nil(t, err) {
				return
			}
		})

		t.Run("if the keys are missing", func(t *testing.T) {
			b := New(WithLoader(staticLoader("other", "value")))

			v := values{Name: "before", Age: 3, Active: true}
			for i := 0; i < 2; i++ {
				err := b.Bind(context.Background(), &v)
				if !assert.Nil(t, err) {
					return
				}
				if !assert.Equal(t, values{Name: "before", Age: 3, Active: true}, v) {
					return
				}
			}
		})

		t.Run("if the resource is empty", func(t *testing.T) {
			fsys := fstest.MapFS{
				"app.properties": &fstest.MapFile{Data: []byte("# nothing here\n")},
			}

			v := values{Name: "before", Age: 3}
			err := Bind(context.Background(), &v, WithLoader(resource.FromFS(fsys)))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, values{Name: "before", Age: 3}, v) {
				return
			}
		})

		t.Run("if the field type cannot be converted from a string", func(t *testing.T) {
			type point struct{ X, Y int }
			type target struct {
				_ Resource `prop:"app.properties"`

				Point point `prop:"point"`
				Name  string `prop:"name"`
			}

			v := target{Point: point{X: 1, Y: 2}}
			err := Bind(context.Background(), &v, WithLoader(staticLoader("point", "3,4", "name", "x")))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, point{X: 1, Y: 2}, v.Point) {
				return
			}
			if !assert.Equal(t, "x", v.Name) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a bindable struct is passed by value", func(t *testing.T) {
			err := Bind(context.Background(), values{}, WithLoader(staticLoader("name", "x")))

			var ierr InvalidTargetError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.Equal(t, reflect.TypeOf(values{}), ierr.Type) {
				return
			}
		})

		t.Run("if the resource does not exist", func(t *testing.T) {
			v := values{Name: "before"}
			err := Bind(context.Background(), &v, WithLoader(resource.FromFS(fstest.MapFS{})))

			var lerr ResourceLoadError
			if !assert.ErrorAs(t, err, &lerr) {
				return
			}
			if !assert.Equal(t, "app.properties", lerr.Resource) {
				return
			}
			if !assert.ErrorIs(t, err, fs.ErrNotExist) {
				return
			}
			if !assert.Equal(t, values{Name: "before"}, v) {
				return
			}
		})

		t.Run("if the resource is malformed", func(t *testing.T) {
			type target struct {
				_ Resource `prop:"app.yaml"`

				Name string `prop:"name"`
			}
			fsys := fstest.MapFS{
				"app.yaml": &fstest.MapFile{Data: []byte("- a\n- b\n")},
			}

			v := target{Name: "before"}
			err := Bind(context.Background(), &v, WithLoader(resource.FromFS(fsys)))

			var ferr resource.InvalidFormatError
			if !assert.ErrorAs(t, err, &ferr) {
				return
			}
			if !assert.Equal(t, "before", v.Name) {
				return
			}
		})

		t.Run("if a value cannot be coerced", func(t *testing.T) {
			v := values{Name: "before", Age: 3}
			err := Bind(
				context.Background(),
				&v,
				WithLoader(staticLoader("name", "after", "age", "ten", "active", "yes")),
			)
			if !assert.Error(t, err) {
				return
			}

			joined, ok := err.(interface{ Unwrap() []error })
			if !assert.True(t, ok) {
				return
			}
			errs := joined.Unwrap()
			if !assert.Len(t, errs, 2) {
				return
			}

			var cerr CoercionError
			if !assert.ErrorAs(t, errs[0], &cerr) {
				return
			}
			if !assert.Equal(t, "Age", cerr.Field) {
				return
			}
			if !assert.Equal(t, "age", cerr.Key) {
				return
			}
			if !assert.Equal(t, "ten", cerr.Raw) {
				return
			}
			if !assert.Equal(t, reflect.TypeOf(0), cerr.Target) {
				return
			}

			if !assert.ErrorAs(t, errs[1], &cerr) {
				return
			}
			if !assert.Equal(t, "Active", cerr.Field) {
				return
			}
			if !assert.ErrorIs(t, cerr, ErrInvalidBool) {
				return
			}

			if !assert.Equal(t, values{Name: "before", Age: 3}, v) {
				return
			}
		})

		t.Run("if a char field is empty", func(t *testing.T) {
			type target struct {
				_ Resource `prop:"app.properties"`

				Sep rune `prop:"sep,char"`
			}

			v := target{Sep: ';'}
			err := Bind(context.Background(), &v, WithLoader(staticLoader("sep", "")))
			if !assert.ErrorIs(t, err, ErrEmptyChar) {
				return
			}
			if !assert.Equal(t, ';', v.Sep) {
				return
			}
		})

		t.Run("if the context is cancelled", func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var v bean
			err := Bind(ctx, &v, WithLoader(testdata()))
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
			if !assert.Nil(t, v.Age) {
				return
			}
		})
	})

	t.Run("will bind the fields", func(t *testing.T) {
		t.Run("if the resource is a properties file", func(t *testing.T) {
			var v bean
			if !assert.Nil(t, v.Age) || !assert.Nil(t, v.Name) {
				return
			}

			err := Bind(context.Background(), &v, WithLoader(testdata()))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.NotNil(t, v.Age) || !assert.NotNil(t, v.Name) {
				return
			}
			if !assert.Equal(t, 10, *v.Age) {
				return
			}
			if !assert.Equal(t, valueName, *v.Name) {
				return
			}
		})

		t.Run("if the default loader is used", func(t *testing.T) {
			type target struct {
				_ Resource `prop:"testdata/mcaligares/modules/properties/test.properties"`

				Age int `prop:"properties.age"`
			}

			var v target
			err := Bind(context.Background(), &v)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 10, v.Age) {
				return
			}
		})

		t.Run("if the resource is a yaml document", func(t *testing.T) {
			type server struct {
				_ Resource `prop:"server.yaml"`

				Host    string        `prop:"server.host"`
				Port    uint16        `prop:"server.port"`
				Debug   bool          `prop:"server.debug"`
				Timeout time.Duration `prop:"server.timeout"`
				Tags    string        `prop:"server.tags"`
			}

			var v server
			err := Bind(context.Background(), &v, WithLoader(testdata()))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, server{
				Host:    "localhost",
				Port:    8080,
				Debug:   true,
				Timeout: 30 * time.Second,
				Tags:    "a,b",
			}, v) {
				return
			}
		})

		t.Run("if the bool is not strict and lenient bools are enabled", func(t *testing.T) {
			v := values{Active: true}
			err := Bind(
				context.Background(),
				&v,
				WithLoader(staticLoader("active", "yes")),
				LenientBool(true),
			)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.False(t, v.Active) {
				return
			}
		})

		t.Run("if a custom tag name is used", func(t *testing.T) {
			type target struct {
				_ Resource `cfg:"app.properties"`

				Name string `cfg:"name" prop:"other"`
			}

			var v target
			err := Bind(
				context.Background(),
				&v,
				WithLoader(staticLoader("name", "cfg", "other", "prop")),
				TagName("cfg"),
			)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "cfg", v.Name) {
				return
			}
		})
	})
}

func TestBinder_Bind_coercion(t *testing.T) {
	type color string

	type target struct {
		_ Resource `prop:"app.properties"`

		String  string        `prop:"string"`
		Named   color         `prop:"named"`
		Int     int           `prop:"int"`
		Int64   int64         `prop:"int64"`
		Int32   int32         `prop:"int32"`
		Int16   int16         `prop:"int16"`
		Int8    int8          `prop:"int8"`
		Uint    uint          `prop:"uint"`
		Uint8   uint8         `prop:"uint8"`
		Float64 float64       `prop:"float64"`
		Float32 float32       `prop:"float32"`
		Bool    bool          `prop:"bool"`
		Rune    rune          `prop:"rune,char"`
		Byte    byte          `prop:"byte,char"`
		Char    string        `prop:"char,char"`
		Dur     time.Duration `prop:"duration"`
		Time    time.Time     `prop:"time"`
		Level   slog.Level    `prop:"level"`
		Any     any           `prop:"any"`
		Ptr     *float64      `prop:"ptr"`
	}

	testCases := []struct {
		Name  string
		Key   string
		Raw   string
		Check func(t *testing.T, v target)
	}{
		{
			Name:  "string",
			Key:   "string",
			Raw:   "hello world",
			Check: func(t *testing.T, v target) { require.Equal(t, "hello world", v.String) },
		},
		{
			Name:  "named string",
			Key:   "named",
			Raw:   "red",
			Check: func(t *testing.T, v target) { require.Equal(t, color("red"), v.Named) },
		},
		{
			Name:  "int",
			Key:   "int",
			Raw:   "-42",
			Check: func(t *testing.T, v target) { require.Equal(t, -42, v.Int) },
		},
		{
			Name:  "int64",
			Key:   "int64",
			Raw:   "9223372036854775807",
			Check: func(t *testing.T, v target) { require.Equal(t, int64(9223372036854775807), v.Int64) },
		},
		{
			Name:  "int32",
			Key:   "int32",
			Raw:   "2147483647",
			Check: func(t *testing.T, v target) { require.Equal(t, int32(2147483647), v.Int32) },
		},
		{
			Name:  "int16",
			Key:   "int16",
			Raw:   "-32768",
			Check: func(t *testing.T, v target) { require.Equal(t, int16(-32768), v.Int16) },
		},
		{
			Name:  "int8",
			Key:   "int8",
			Raw:   "127",
			Check: func(t *testing.T, v target) { require.Equal(t, int8(127), v.Int8) },
		},
		{
			Name:  "uint",
			Key:   "uint",
			Raw:   "7",
			Check: func(t *testing.T, v target) { require.Equal(t, uint(7), v.Uint) },
		},
		{
			Name:  "uint8",
			Key:   "uint8",
			Raw:   "255",
			Check: func(t *testing.T, v target) { require.Equal(t, uint8(255), v.Uint8) },
		},
		{
			Name:  "float64",
			Key:   "float64",
			Raw:   "3.25",
			Check: func(t *testing.T, v target) { require.Equal(t, 3.25, v.Float64) },
		},
		{
			Name:  "float32",
			Key:   "float32",
			Raw:   "1.5",
			Check: func(t *testing.T, v target) { require.Equal(t, float32(1.5), v.Float32) },
		},
		{
			Name:  "bool in any case",
			Key:   "bool",
			Raw:   "TRUE",
			Check: func(t *testing.T, v target) { require.True(t, v.Bool) },
		},
		{
			Name:  "rune char",
			Key:   "rune",
			Raw:   "€uro",
			Check: func(t *testing.T, v target) { require.Equal(t, '€', v.Rune) },
		},
		{
			Name:  "byte char",
			Key:   "byte",
			Raw:   "xyz",
			Check: func(t *testing.T, v target) { require.Equal(t, byte('x'), v.Byte) },
		},
		{
			Name:  "string char",
			Key:   "char",
			Raw:   "ñandu",
			Check: func(t *testing.T, v target) { require.Equal(t, "ñ", v.Char) },
		},
		{
			Name:  "duration",
			Key:   "duration",
			Raw:   "1m30s",
			Check: func(t *testing.T, v target) { require.Equal(t, 90*time.Second, v.Dur) },
		},
		{
			Name: "text unmarshaler struct",
			Key:  "time",
			Raw:  "2015-06-01T10:00:00Z",
			Check: func(t *testing.T, v target) {
				require.True(t, time.Date(2015, time.June, 1, 10, 0, 0, 0, time.UTC).Equal(v.Time))
			},
		},
		{
			Name:  "text unmarshaler int",
			Key:   "level",
			Raw:   "WARN",
			Check: func(t *testing.T, v target) { require.Equal(t, slog.LevelWarn, v.Level) },
		},
		{
			Name:  "unknown type passes the raw string through",
			Key:   "any",
			Raw:   "raw value",
			Check: func(t *testing.T, v target) { require.Equal(t, "raw value", v.Any) },
		},
		{
			Name: "pointer",
			Key:  "ptr",
			Raw:  "0.5",
			Check: func(t *testing.T, v target) {
				require.NotNil(t, v.Ptr)
				require.Equal(t, 0.5, *v.Ptr)
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			var v target
			err := Bind(context.Background(), &v, WithLoader(staticLoader(testCase.Key, testCase.Raw)))
			require.Nil(t, err)

			testCase.Check(t, v)
		})
	}

	failures := []struct {
		Name   string
		Key    string
		Raw    string
		NumErr bool
		Cause  error
	}{
		{Name: "int with trailing text", Key: "int", Raw: "10px", NumErr: true},
		{Name: "int8 out of range", Key: "int8", Raw: "128", NumErr: true},
		{Name: "uint negative", Key: "uint", Raw: "-1", NumErr: true},
		{Name: "float with comma", Key: "float64", Raw: "3,25", NumErr: true},
		{Name: "bool", Key: "bool", Raw: "1", Cause: ErrInvalidBool},
		{Name: "empty rune", Key: "rune", Raw: "", Cause: ErrEmptyChar},
		{Name: "byte overflow", Key: "byte", Raw: "€", Cause: ErrCharOverflow},
		{Name: "duration", Key: "duration", Raw: "soon"},
		{Name: "text unmarshaler", Key: "level", Raw: "LOUD"},
	}

	for _, testCase := range failures {
		t.Run("fails on "+testCase.Name, func(t *testing.T) {
			var v target
			err := Bind(context.Background(), &v, WithLoader(staticLoader(testCase.Key, testCase.Raw)))

			var cerr CoercionError
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, testCase.Key, cerr.Key)
			require.Equal(t, testCase.Raw, cerr.Raw)
			if testCase.NumErr {
				var nerr *strconv.NumError
				require.ErrorAs(t, err, &nerr)
			}
			if testCase.Cause != nil {
				require.ErrorIs(t, err, testCase.Cause)
			}
			require.Equal(t, target{}, v)
		})
	}
}

func TestBinder_Bind_tracing(t *testing.T) {
	t.Run("will record a span", func(t *testing.T) {
		t.Run("if the value is bound", func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

			var v bean
			err := Bind(context.Background(), &v, WithLoader(testdata()), WithTracerProvider(tp))
			if !assert.Nil(t, err) {
				return
			}

			spans := sr.Ended()
			if !assert.Len(t, spans, 1) {
				return
			}
			span := spans[0]
			if !assert.Equal(t, "propbind.Bind", span.Name()) {
				return
			}
			if !assert.Subset(t, span.Attributes(), []attribute.KeyValue{
				attribute.String("propbind.resource", "mcaligares/modules/properties/test.properties"),
				attribute.Int("propbind.fields", 2),
				attribute.Int("propbind.bound", 2),
			}) {
				return
			}
		})

		t.Run("if the resource fails to load", func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

			var v values
			err := Bind(context.Background(), &v, WithLoader(resource.Static{}), WithTracerProvider(tp))
			if !assert.Error(t, err) {
				return
			}

			spans := sr.Ended()
			if !assert.Len(t, spans, 1) {
				return
			}
			if !assert.Equal(t, codes.Error, spans[0].Status().Code) {
				return
			}
		})
	})

	t.Run("will not record a span", func(t *testing.T) {
		t.Run("if the type is not bindable", func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

			var v notBindable
			err := Bind(context.Background(), &v, WithTracerProvider(tp))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Empty(t, sr.Ended()) {
				return
			}
		})
	})
}

func TestBinder_Bind_logging(t *testing.T) {
	t.Run("will log at debug", func(t *testing.T) {
		t.Run("if a key is missing", func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			var v values
			err := Bind(context.Background(), &v, WithLoader(staticLoader()), WithLogger(log))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Contains(t, buf.String(), "key not found") {
				return
			}
			if !assert.Contains(t, buf.String(), "key=age") {
				return
			}
		})
	})

	t.Run("will not log", func(t *testing.T) {
		t.Run("if binding fails", func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

			var v values
			err := Bind(context.Background(), &v, WithLoader(resource.Static{}), WithLogger(log))
			if !assert.Error(t, err) {
				return
			}
			if !assert.Empty(t, buf.String()) {
				return
			}
		})
	})
}

func TestResourceLoadError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := ResourceLoadError{Resource: "app.properties", Cause: cause}

	if !assert.ErrorIs(t, err, cause) {
		return
	}
	if !assert.Contains(t, err.Error(), "app.properties") {
		return
	}
}
