package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/textstruct/core/section"
	"github.com/leofalp/textstruct/providers/observability"
)

const (
	// DefaultTimeout bounds a single attempt, not the whole call.
	DefaultTimeout = 120 * time.Second

	// DefaultBackoffUnit is the delay after the first failed attempt; it
	// doubles for each following attempt.
	DefaultBackoffUnit = time.Second

	// DefaultMaxAttempts is used when Send is called with maxAttempts <= 0.
	DefaultMaxAttempts = 3

	// maxErrorBodyLength caps how much of an upstream error body is kept in
	// the error message.
	maxErrorBodyLength = 2000
)

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Transport issues one logical POST, retrying timeouts and 5xx responses with
// exponential backoff. It is safe for concurrent use.
type Transport struct {
	client      *http.Client
	timeout     time.Duration
	backoffUnit time.Duration
	maxAttempts int
	sleep       Sleeper
	observer    observability.Provider
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the default http.Client. Its own Timeout, if any,
// applies on top of the per-attempt timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithBackoffUnit sets the delay after the first failed attempt.
func WithBackoffUnit(unit time.Duration) Option {
	return func(t *Transport) {
		if unit > 0 {
			t.backoffUnit = unit
		}
	}
}

// WithMaxAttempts sets the attempt bound used when Send receives maxAttempts <= 0.
func WithMaxAttempts(attempts int) Option {
	return func(t *Transport) {
		if attempts > 0 {
			t.maxAttempts = attempts
		}
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(sleep Sleeper) Option {
	return func(t *Transport) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// WithObserver sets the provider attempts are logged and measured with. A
// provider carried by the request context takes precedence.
func WithObserver(observer observability.Provider) Option {
	return func(t *Transport) {
		t.observer = observability.OrNop(observer)
	}
}

// New returns a Transport with the defaults above, adjusted by opts.
func New(opts ...Option) *Transport {
	t := &Transport{
		client:      &http.Client{},
		timeout:     DefaultTimeout,
		backoffUnit: DefaultBackoffUnit,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
		observer:    observability.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Backoff returns the delay after the failed attempt with 0-based index
// attempt: unit, 2*unit, 4*unit, ...
func Backoff(unit time.Duration, attempt int) time.Duration {
	return unit << uint(attempt)
}

// Send POSTs payload as JSON to endpoint and returns the response body verbatim.
//
// Each attempt gets its own timeout. Timeouts and responses with status >= 500
// are retried after Backoff(unit, attempt) until maxAttempts attempts have been
// made; the last such failure is returned. Any other non-2xx status fails at
// once with [section.KindTransportClientError]. Connection failures and
// cancellation of ctx are reported as [section.KindUnexpected] without retry.
func (t *Transport) Send(ctx context.Context, endpoint string, headers http.Header, payload any, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = t.maxAttempts
	}
	observer := observability.FromContextOr(ctx, t.observer)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", section.NewError(section.KindUnexpected, "error marshaling request body", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := Backoff(t.backoffUnit, attempt-1)
			observer.Counter(observability.MetricTransportRetries).Add(ctx, 1)
			observer.Info(ctx, "Retrying upstream request",
				observability.Int(observability.AttrTransportAttempt, attempt+1),
				observability.Int(observability.AttrTransportMaxAttempts, maxAttempts),
				observability.Duration(observability.AttrTransportBackoff, backoff),
				observability.Error(lastErr),
			)
			// Respect context cancellation between retries.
			if err := t.sleep(ctx, backoff); err != nil {
				return "", section.NewError(section.KindUnexpected, "request abandoned during backoff", err)
			}
		}

		text, err := t.attempt(ctx, endpoint, headers, body, attempt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !section.KindOf(err).Retryable() {
			return "", err
		}
	}

	observer.Warn(ctx, "Upstream request failed after all attempts",
		observability.Int(observability.AttrTransportMaxAttempts, maxAttempts),
		observability.Error(lastErr),
	)
	return "", lastErr
}

// attempt performs a single POST under its own deadline.
func (t *Transport) attempt(ctx context.Context, endpoint string, headers http.Header, body []byte, attempt int) (string, error) {
	observer := observability.FromContextOr(ctx, t.observer)
	attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", section.NewError(section.KindUnexpected, "error creating request", err)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	observer.Counter(observability.MetricTransportAttempts).Add(ctx, 1)
	observer.Debug(ctx, "Sending upstream request",
		observability.String(observability.AttrHTTPURL, endpoint),
		observability.Int(observability.AttrTransportAttempt, attempt+1),
		observability.Int(observability.AttrHTTPRequestBodySize, len(body)),
	)

	start := time.Now()
	defer func() {
		observer.Histogram(observability.MetricTransportAttemptDuration).Record(ctx,
			float64(time.Since(start).Microseconds())/1000,
			observability.Int(observability.AttrTransportAttempt, attempt+1),
		)
	}()

	res, err := t.client.Do(req)
	if err != nil {
		return "", t.classifyDoError(ctx, attemptCtx, err)
	}
	defer func(Body io.ReadCloser) {
		if closeErr := Body.Close(); closeErr != nil {
			observer.Warn(ctx, "failed to close response body", observability.Error(closeErr))
		}
	}(res.Body)

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", t.classifyDoError(ctx, attemptCtx, err)
	}

	observer.Debug(ctx, "Upstream response received",
		observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
		observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
		observability.Duration(observability.AttrDuration, time.Since(start)),
	)

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return string(respBody), nil
	case res.StatusCode >= 500:
		return "", &section.Error{
			Kind:    section.KindTransportServerError,
			Status:  res.StatusCode,
			Message: statusMessage(res, respBody),
		}
	default:
		return "", &section.Error{
			Kind:    section.KindTransportClientError,
			Status:  res.StatusCode,
			Message: statusMessage(res, respBody),
		}
	}
}

// classifyDoError separates per-attempt timeouts (retryable) from caller
// cancellation and connection failures (not retryable).
func (t *Transport) classifyDoError(ctx, attemptCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return section.NewError(section.KindUnexpected, "request abandoned by caller", ctx.Err())
	}

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return section.NewError(section.KindTransportTimeout,
			fmt.Sprintf("no response within %s", t.timeout), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return section.NewError(section.KindTransportTimeout, "network timeout", err)
	}

	return section.NewError(section.KindUnexpected, "error sending request", err)
}

// statusMessage renders the upstream status line and a bounded body excerpt.
func statusMessage(res *http.Response, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return res.Status
	}
	return res.Status + ": " + observability.TruncateString(text, maxErrorBodyLength)
}

// sleepContext is the default Sleeper.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
