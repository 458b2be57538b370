// Package transport sends the single outbound POST every structuring step
// depends on. [Transport.Send] runs each attempt under its own timeout and
// retries timeouts and 5xx responses with exponential backoff (unit, 2*unit,
// 4*unit, ... without jitter) up to a fixed attempt bound. Other non-2xx
// responses fail immediately. Failures are reported as *section.Error values.
package transport
