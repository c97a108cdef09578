// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/z5labs/propbind/internal/otelslog"
	"github.com/z5labs/propbind/internal/try"
	"github.com/z5labs/propbind/properties"
	"github.com/z5labs/propbind/resource"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const (
	flagDir      = "dir"
	flagBaseURL  = "base-url"
	flagFormat   = "format"
	flagOutput   = "output"
	flagLogLevel = "log-level"
	flagTimeout  = "timeout"
	flagTrace    = "trace"
)

type app struct {
	v        *viper.Viper
	log      *slog.Logger
	tp       trace.TracerProvider
	loader   resource.Loader
	shutdown func(context.Context) error
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propbind",
		Short: "Inspect key value resources as propbind loads them",
		Long: `propbind loads .properties, YAML and JSON resources and prints the flat
key value pairs a struct would be bound from.

Every flag may also be set through an environment variable prefixed with
PROPBIND_, e.g. PROPBIND_BASE_URL.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	fs := cmd.PersistentFlags()
	fs.String(flagDir, ".", "directory resources are loaded from")
	fs.String(flagBaseURL, "", "load resources over HTTP relative to this URL instead of --dir")
	fs.String(flagFormat, "", "resource format (properties, yaml, json); defaults to the file extension")
	fs.StringP(flagOutput, "o", "text", "output format (text, json, yaml)")
	fs.String(flagLogLevel, "warn", "log level (debug, info, warn, error)")
	fs.Duration(flagTimeout, 10*time.Second, "time allowed for loading resources")
	fs.Bool(flagTrace, false, "write trace spans to stderr")

	cmd.AddCommand(a.dumpCommand(), a.getCommand())
	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	err := a.v.BindPFlags(cmd.Flags())
	if err != nil {
		return err
	}
	a.v.SetEnvPrefix("PROPBIND")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	var level slog.Level
	err = level.UnmarshalText([]byte(a.v.GetString(flagLogLevel)))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.log = slog.New(otelslog.NewHandler(
		slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}),
	))

	a.tp = otel.GetTracerProvider()
	if a.v.GetBool(flagTrace) {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		a.tp = tp
		a.shutdown = tp.Shutdown
	}

	format := resource.Format(a.v.GetString(flagFormat))
	baseURL := a.v.GetString(flagBaseURL)
	if baseURL == "" {
		a.loader = resource.FromFS(os.DirFS(a.v.GetString(flagDir)), resource.FSFormat(format))
		return nil
	}

	zl := newZapLogger(cmd.ErrOrStderr(), level)
	a.loader, err = resource.FromHTTP(
		baseURL,
		resource.HTTPFormat(format),
		resource.HTTPTimeout(a.v.GetDuration(flagTimeout)),
		resource.HTTPTracerProvider(a.tp),
		resource.RetryRequests(resource.RetryAttemptLogger(zl)),
		resource.CircuitBreaker(resource.CircuitLogger(zl)),
	)
	return err
}

// load fetches every named resource concurrently. The returned maps are
// in the same order as names.
func (a *app) load(ctx context.Context, names []string) ([]*properties.Map, error) {
	ctx, cancel := context.WithTimeout(ctx, a.v.GetDuration(flagTimeout))
	defer cancel()

	tracer := a.tp.Tracer("github.com/z5labs/propbind/cmd/propbind")
	ms := make([]*properties.Map, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() (err error) {
			defer try.Recover(&err)

			spanCtx, span := tracer.Start(gctx, "propbind.load", trace.WithAttributes(
				attribute.String("propbind.resource", name),
			))
			defer span.End()

			m, err := a.loader.Load(spanCtx, name)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			a.log.DebugContext(spanCtx, "loaded resource", slog.String("resource", name), slog.Int("pairs", m.Len()))
			ms[i] = m
			return nil
		})
	}
	return ms, g.Wait()
}

func newZapLogger(w io.Writer, level slog.Level) *zap.Logger {
	var zl zapcore.Level
	switch {
	case level <= slog.LevelDebug:
		zl = zapcore.DebugLevel
	case level <= slog.LevelInfo:
		zl = zapcore.InfoLevel
	case level <= slog.LevelWarn:
		zl = zapcore.WarnLevel
	default:
		zl = zapcore.ErrorLevel
	}

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zl))
}
