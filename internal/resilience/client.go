package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without dialing when the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Config holds configuration for the resilient HTTP client.
type Config struct {
	// Name identifies this client in logs and breaker state changes.
	Name string

	// Timeout bounds each attempt, including reading the response headers.
	Timeout time.Duration

	// Retries is the number of extra attempts after a network error or 5xx.
	// Zero means a single attempt.
	Retries uint64

	// InitialInterval and MaxInterval shape the exponential backoff between attempts.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker overrides DefaultBreakerConfig.
	Breaker *BreakerConfig

	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper

	Logger zerolog.Logger
}

// DefaultConfig returns a single-attempt configuration with a 10 second timeout.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		Timeout:         10 * time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Logger:          zerolog.Nop(),
	}
}

// Client is an HTTP client guarded by a circuit breaker.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        Config
}

// NewClient creates a new resilient HTTP client. Zero durations fall back
// to DefaultConfig; Retries is taken as given.
func NewClient(cfg Config) *Client {
	defaults := DefaultConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}

	breakerCfg := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}
	if breakerCfg.OnStateChange == nil {
		log := cfg.Logger
		breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("client", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		breaker: newBreaker[*http.Response](breakerCfg), //nolint:bodyclose // type param, not response
		cfg:     cfg,
	}
}

// Get issues a GET request. A 5xx response counts as a breaker failure and is
// retried while retries remain; the last response is returned to the caller
// with a nil error, so callers see the upstream status. The caller closes
// the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.Do(req)
}

// Do executes req under the breaker and retry policy.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.Retries), ctx)

	var last *http.Response
	attempt := func() error {
		if last != nil {
			_ = last.Body.Close()
			last = nil
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			resp, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= http.StatusInternalServerError {
				return resp, &ServerError{StatusCode: resp.StatusCode}
			}
			return resp, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		last = resp
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.cfg.Logger.Debug().Err(err).
			Str("client", c.cfg.Name).
			Str("url", req.URL.Redacted()).
			Dur("backoff", wait).
			Msg("retrying request")
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		var serverErr *ServerError
		if last != nil && errors.As(err, &serverErr) {
			return last, nil
		}
		if last != nil {
			_ = last.Body.Close()
		}
		return nil, err
	}
	return last, nil
}

// ServerError reports an upstream 5xx status.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker's counters for the current generation.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}
