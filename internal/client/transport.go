// Package client implements the browser-facing side of the system: a
// retrying HTTP transport, a response cache and a session that feeds the
// query engine.
package client

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/nsmith5/marksync/internal/domain"
	"github.com/nsmith5/marksync/internal/logger"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMultiplier = 2.0
)

// TransportOptions tunes the retry behavior. Everything is injectable so
// tests can run with millisecond delays and a recorded sleep.
type TransportOptions struct {
	Timeout    time.Duration // per-attempt timeout, enforced via cancellation
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration
	Multiplier float64
	Sleep      func(ctx context.Context, d time.Duration) error // nil = real sleep
	Offline    func() bool                                      // known-offline precondition, nil = never
}

// Transport wraps an HTTP client with timeout, error classification and
// exponential-backoff retry for retryable failures.
type Transport struct {
	http   *http.Client
	opts   TransportOptions
	logger logger.Logger
}

// NewTransport creates a transport. Zero option fields fall back to defaults.
func NewTransport(httpClient *http.Client, opts TransportOptions, log logger.Logger) *Transport {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = DefaultMultiplier
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Transport{http: httpClient, opts: opts, logger: log}
}

// Do sends the request, retrying timeouts, connectivity failures and
// server-class (5xx) responses with exponential backoff
// (baseDelay * multiplier^attempt). Responses with status < 400 are returned
// as-is; everything else is classified into a typed error. 4xx responses are
// never retried here, even the ones whose kind is retryable for callers
// (429, 409): their Retryable flag drives caller-scheduled re-syncs instead.
// The request must be body-less or carry a GetBody so attempts can be
// replayed.
func (t *Transport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if t.opts.Offline != nil && t.opts.Offline() {
			return nil, domain.NewError(domain.KindOffline, "offline precondition failed")
		}

		resp, err := t.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt >= t.opts.MaxRetries {
			return nil, err
		}
		// Retrying a canceled parent context is pointless.
		if ctx.Err() != nil {
			return nil, err
		}

		delay := t.backoff(attempt)
		t.logger.Debug("retrying request",
			logger.String("url", req.URL.String()),
			logger.Int("attempt", attempt+1),
			logger.Duration("delay", delay),
			logger.String("kind", string(domain.KindOf(err))))

		if sleepErr := t.opts.Sleep(ctx, delay); sleepErr != nil {
			return nil, lastErr
		}
	}
}

// Get is Do for a plain GET.
func (t *Transport) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindClientRequestError, "failed to build request", err)
	}
	return t.Do(ctx, req)
}

func (t *Transport) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)

	attemptReq := req.Clone(attemptCtx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, domain.WrapError(domain.KindClientRequestError, "failed to replay request body", err)
		}
		attemptReq.Body = body
	}

	resp, err := t.http.Do(attemptReq)
	if err != nil {
		cancel()
		if attemptCtx.Err() == context.DeadlineExceeded || ctx.Err() != nil {
			return nil, domain.WrapError(domain.KindTimeout, "request timed out", err)
		}
		return nil, domain.WrapError(domain.KindNetworkFailure, "request failed", err)
	}

	if resp.StatusCode >= 400 {
		kind := classifyStatus(resp.StatusCode)
		e := domain.NewError(kind, http.StatusText(resp.StatusCode))
		e.Status = resp.StatusCode
		resp.Body.Close()
		cancel()
		return nil, e
	}

	// The caller owns the body; cancel once it is fully read.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (t *Transport) backoff(attempt int) time.Duration {
	return time.Duration(float64(t.opts.BaseDelay) * math.Pow(t.opts.Multiplier, float64(attempt)))
}

// shouldRetry decides transport-level retry: timeouts, connectivity failures
// and server-class responses. A 4xx response is the server's answer, not a
// transport failure, so it is surfaced immediately regardless of its kind's
// Retryable flag.
func shouldRetry(err error) bool {
	var de *domain.Error
	if !errors.As(err, &de) {
		return false
	}
	if de.Status >= 400 && de.Status < 500 {
		return false
	}
	switch de.Kind {
	case domain.KindTimeout, domain.KindNetworkFailure, domain.KindUpstreamUnavailable:
		return true
	default:
		return false
	}
}

// classifyStatus maps a server response status to an error kind.
func classifyStatus(status int) domain.Kind {
	switch {
	case status >= 500:
		return domain.KindUpstreamUnavailable
	case status == http.StatusTooManyRequests:
		return domain.KindRateLimited
	case status == http.StatusConflict:
		return domain.KindSyncInProgress
	case status == http.StatusRequestTimeout:
		return domain.KindTimeout
	default:
		return domain.KindClientRequestError
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
