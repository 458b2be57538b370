// Package anthropic holds the wire format of Anthropic's Messages API as used
// by textstruct: the request and response bodies, the required headers, and
// helpers to build a single-turn user request and read the text it returns.
//
// The package performs no I/O; sending is left to core/transport so retries
// and timeouts stay in one place.
package anthropic
