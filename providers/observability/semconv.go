package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the name of the LLM provider (e.g., "anthropic")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier (e.g., "claude-3-sonnet-20240229")
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMMaxTokens is the maximum tokens allowed
	AttrLLMMaxTokens = "llm.max_tokens" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMStopReason is the reason the generation finished
	AttrLLMStopReason = "llm.stop_reason"
)

// --- Transport Attributes ---

const (
	// AttrTransportAttempt is the 1-based attempt number
	AttrTransportAttempt = "transport.attempt"

	// AttrTransportMaxAttempts is the attempt bound for the call
	AttrTransportMaxAttempts = "transport.max_attempts"

	// AttrTransportBackoff is the delay before the next attempt
	AttrTransportBackoff = "transport.backoff"
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPPath is the path of an inbound request
	AttrHTTPPath = "http.path"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Structuring Attributes ---

const (
	// AttrProcessID is the correlation identifier of one two-text request
	AttrProcessID = "process.id"

	// AttrProcessState is the request handler state
	AttrProcessState = "process.state"

	// AttrStructuringText names which input is being structured ("A" or "B")
	AttrStructuringText = "structuring.text"

	// AttrStructuringUnits is the number of units extracted
	AttrStructuringUnits = "structuring.units"

	// AttrStructuringHasExample reports whether a previous example seeded the prompt
	AttrStructuringHasExample = "structuring.has_example"

	// AttrErrorKind is the failure kind of a structuring error
	AttrErrorKind = "error.kind"

	// AttrErrorStage is the stage a structuring error originated from
	AttrErrorStage = "error.stage"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"
)

// --- Metric Names ---

const (
	// MetricTransportAttempts counts outbound attempts
	MetricTransportAttempts = "transport.attempts"

	// MetricTransportRetries counts attempts that were followed by a retry
	MetricTransportRetries = "transport.retries"

	// MetricTransportAttemptDuration records per-attempt latency in milliseconds
	MetricTransportAttemptDuration = "transport.attempt.duration_ms"

	// MetricProcessCount counts handled two-text requests by outcome
	MetricProcessCount = "process.count"
)
