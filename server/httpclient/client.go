package httpclient

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

const (
	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent to every upstream. Reddit throttles generic agents.
	DefaultUserAgent = "mattermost-plugin-media-preview/1.0 (+https://github.com/fmartingr/mattermost-plugin-media-preview)"
)

// Logger is the subset of the plugin API logging methods used here.
type Logger interface {
	LogWarn(msg string, keyValuePairs ...any)
}

// Options configures a client for a single upstream.
type Options struct {
	// Name identifies the upstream in logs and in the circuit breaker.
	Name      string
	Timeout   time.Duration
	UserAgent string
	// Transport replaces http.DefaultTransport, mostly for tests.
	Transport http.RoundTripper
	Logger    Logger
}

// StatusError is returned when an upstream answers with an unexpected status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// StatusCode extracts the HTTP status from err, or 0 when it carries none.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// New creates a resty client for one upstream. Requests are never retried and
// cookies are never kept between requests; a circuit breaker stops calling a
// host that keeps failing with server errors.
func New(opts Options) *resty.Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(0)
	client.SetCookieJar(nil)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetTransport(NewCircuitBreakerTransport(opts.Name, transport, opts.Logger))

	return client
}

func breakerSettings(name, host string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name + "_" + host + "_circuit_breaker",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	}
}

// CircuitBreakerTransport counts transport faults and 5xx answers against
// a circuit breaker per request host.
type CircuitBreakerTransport struct {
	next     http.RoundTripper
	logger   Logger
	upstream string

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewCircuitBreakerTransport(upstream string, next http.RoundTripper, logger Logger) *CircuitBreakerTransport {
	return &CircuitBreakerTransport{
		next:     next,
		logger:   logger,
		upstream: upstream,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (t *CircuitBreakerTransport) breaker(host string) *gobreaker.CircuitBreaker {
	t.mu.Lock()
	defer t.mu.Unlock()

	cb, ok := t.breakers[host]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(breakerSettings(t.upstream, host))
		t.breakers[host] = cb
	}
	return cb
}

func (t *CircuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var serverErr *http.Response

	host := strings.ToLower(req.URL.Host)
	result, err := t.breaker(host).Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			serverErr = resp
			return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
		}
		return resp, nil
	})

	// A 5xx still counts as a failure for the breaker but is handed back to
	// the caller as a regular response so the status can be reported.
	if serverErr != nil {
		return serverErr, nil
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) && t.logger != nil {
			t.logger.LogWarn("Circuit breaker is open", "upstream", t.upstream, "host", host, "url", req.URL.String())
		}
		return nil, err
	}

	return result.(*http.Response), nil
}
