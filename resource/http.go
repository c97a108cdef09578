// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/z5labs/propbind/internal/ioutil"
	"github.com/z5labs/propbind/properties"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StatusCodeError occurs when a resource server responds with an
// unexpected HTTP status code.
type StatusCodeError struct {
	URL  string
	Code int
}

// Error implements the error interface.
func (e StatusCodeError) Error() string {
	return fmt.Sprintf("unexpected http status code %d from %s", e.Code, e.URL)
}

type circuitOptions struct {
	name        string
	logger      *zap.Logger
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
	statusCodes []int
}

// CircuitOption configures the circuit breaker guarding an HTTP loader.
type CircuitOption func(*circuitOptions)

// CircuitName names the circuit breaker. The name is also used to create
// a named logger for state changes.
func CircuitName(name string) CircuitOption {
	return func(co *circuitOptions) {
		co.name = name
	}
}

// CircuitLogger sets the logger used to report circuit state changes.
func CircuitLogger(logger *zap.Logger) CircuitOption {
	return func(co *circuitOptions) {
		co.logger = logger
	}
}

// CircuitMaxRequests is the maximum number of requests allowed through
// while the circuit is half-open.
func CircuitMaxRequests(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.maxRequests = n
	}
}

// CircuitInterval is the cyclic period of the closed state after which
// failure counts are cleared. Zero never clears them while closed.
func CircuitInterval(interval time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.interval = interval
	}
}

// CircuitTimeout is how long the circuit stays open before going half-open.
func CircuitTimeout(timeout time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.timeout = timeout
	}
}

// CircuitTripCount is the number of consecutive failures which opens the circuit.
func CircuitTripCount(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.tripCount = n
	}
}

// CircuitErrorOnStatusCode registers a response status code which counts
// as a failure.
//
// Default: 500, 502, 503, 504
func CircuitErrorOnStatusCode(code int) CircuitOption {
	return func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, code)
	}
}

type retryOptions struct {
	logger     *zap.Logger
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

// RetryOption configures how failed requests are retried.
type RetryOption func(*retryOptions)

// MinWaitDuration is the minimum backoff between attempts.
func MinWaitDuration(min time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMin = min
	}
}

// MaxWaitDuration is the maximum backoff between attempts.
func MaxWaitDuration(max time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMax = max
	}
}

// MaxRetries is the number of retries after the first attempt.
func MaxRetries(n int) RetryOption {
	return func(ro *retryOptions) {
		ro.maxRetries = n
	}
}

// RetryAttemptLogger sets the logger used to report each attempt.
func RetryAttemptLogger(logger *zap.Logger) RetryOption {
	return func(ro *retryOptions) {
		ro.logger = logger
	}
}

type httpOptions struct {
	timeout   time.Duration
	maxSize   int64
	format    Format
	transport http.RoundTripper
	tp        trace.TracerProvider
	retry     []RetryOption
	circuit   []CircuitOption
}

// HTTPOption configures an HTTP loader.
type HTTPOption func(*httpOptions)

// HTTPTimeout bounds each request attempt.
//
// Default: 10s
func HTTPTimeout(d time.Duration) HTTPOption {
	return func(ho *httpOptions) {
		ho.timeout = d
	}
}

// HTTPMaxSize sets the maximum number of bytes read from a response.
func HTTPMaxSize(n int64) HTTPOption {
	return func(ho *httpOptions) {
		ho.maxSize = n
	}
}

// HTTPFormat forces every resource to be decoded as f.
func HTTPFormat(f Format) HTTPOption {
	return func(ho *httpOptions) {
		ho.format = f
	}
}

// HTTPTransport sets the underlying http.RoundTripper.
func HTTPTransport(rt http.RoundTripper) HTTPOption {
	return func(ho *httpOptions) {
		ho.transport = rt
	}
}

// HTTPTracerProvider sets the trace.TracerProvider used to instrument
// requests. Defaults to the global provider.
func HTTPTracerProvider(tp trace.TracerProvider) HTTPOption {
	return func(ho *httpOptions) {
		ho.tp = tp
	}
}

// RetryRequests customizes the retry policy.
//
// Default: 2 retries with a backoff between 100ms and 5s.
func RetryRequests(opts ...RetryOption) HTTPOption {
	return func(ho *httpOptions) {
		ho.retry = append(ho.retry, opts...)
	}
}

// CircuitBreaker customizes the circuit breaker.
//
// Default: trips after 5 consecutive failures and stays open for 60s.
func CircuitBreaker(opts ...CircuitOption) HTTPOption {
	return func(ho *httpOptions) {
		ho.circuit = append(ho.circuit, opts...)
	}
}

// HTTP loads resources by issuing GET requests relative to a base URL.
type HTTP struct {
	base    *url.URL
	client  *http.Client
	format  Format
	maxSize int64
}

// FromHTTP returns a Loader which resolves resource names relative to baseURL.
func FromHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	ho := &httpOptions{
		timeout:   10 * time.Second,
		maxSize:   DefaultMaxSize,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(ho)
	}

	var otelOpts []otelhttp.Option
	if ho.tp != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(ho.tp))
	}
	rt := otelhttp.NewTransport(ho.transport, otelOpts...)

	l := &HTTP{
		base:    base,
		format:  ho.format,
		maxSize: ho.maxSize,
		client: newRetryClient(
			&http.Client{
				Timeout:   ho.timeout,
				Transport: newCircuitRoundTripper(rt, ho.circuit...),
			},
			ho.retry...,
		),
	}
	return l, nil
}

// Load implements the Loader interface.
func (l *HTTP) Load(ctx context.Context, name string) (*properties.Map, error) {
	u := l.base.JoinPath(name).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, ReadError{Name: name, Cause: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, ReadError{Name: name, Cause: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, NotFoundError{
			Name:  name,
			Cause: errors.Join(fs.ErrNotExist, StatusCodeError{URL: u, Code: resp.StatusCode}),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, ReadError{Name: name, Cause: StatusCodeError{URL: u, Code: resp.StatusCode}}
	}

	b, err := ioutil.ReadAllAndTryClose(resp.Body, l.maxSize)
	if err != nil {
		return nil, ReadError{Name: name, Cause: err}
	}

	format := l.format
	if format == "" {
		format = FormatOf(name)
	}
	return decode(name, format, b)
}

func newRetryClient(c *http.Client, opts ...RetryOption) *http.Client {
	ro := &retryOptions{
		logger:     zap.NewNop(),
		waitMin:    100 * time.Millisecond,
		waitMax:    5 * time.Second,
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(ro)
	}

	log := ro.logger
	rc := &retryablehttp.Client{
		HTTPClient:   c,
		Logger:       nil,
		RetryWaitMin: ro.waitMin,
		RetryWaitMax: ro.waitMax,
		RetryMax:     ro.maxRetries,
		RequestLogHook: func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			log.Debug("requesting resource", zap.String("url", req.URL.String()), zap.Int("attempt", attempt))
		},
		ResponseLogHook: func(_ retryablehttp.Logger, resp *http.Response) {
			log.Debug("received resource response", zap.String("url", resp.Request.URL.String()), zap.Int("http_status_code", resp.StatusCode))
		},
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

type circuitRoundTripper struct {
	http.RoundTripper
	cb    *gobreaker.CircuitBreaker
	codes map[int]struct{}
}

func newCircuitRoundTripper(rt http.RoundTripper, opts ...CircuitOption) *circuitRoundTripper {
	co := &circuitOptions{
		name:        "propbind.resource",
		logger:      zap.NewNop(),
		tripCount:   5,
		timeout:     60 * time.Second,
		maxRequests: 1,
	}
	for _, opt := range opts {
		opt(co)
	}
	if len(co.statusCodes) == 0 {
		co.statusCodes = []int{
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		}
	}

	codes := make(map[int]struct{}, len(co.statusCodes))
	for _, code := range co.statusCodes {
		codes[code] = struct{}{}
	}

	log := co.logger.Named(co.name)
	return &circuitRoundTripper{
		RoundTripper: rt,
		codes:        codes,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        co.name,
			MaxRequests: co.maxRequests,
			Interval:    co.interval,
			Timeout:     co.timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= co.tripCount
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					log.Error("circuit has been opened")
				case gobreaker.StateHalfOpen:
					log.Warn("circuit is now half open", zap.Uint32("max_requests_allowed_through", co.maxRequests))
				case gobreaker.StateClosed:
					log.Info("circuit has been closed")
				}
			},
			IsSuccessful: countsAsSuccess,
		}),
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (interface{}, error) {
		resp, err := rt.RoundTripper.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if _, ok := rt.codes[resp.StatusCode]; ok {
			resp.Body.Close()
			return nil, StatusCodeError{URL: req.URL.String(), Code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}

// Only failures caused by the remote end count against the circuit.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var serr StatusCodeError
	if errors.As(err, &serr) {
		return false
	}
	var nerr net.Error
	return !errors.As(err, &nerr)
}
