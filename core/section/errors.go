package section

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a structuring failure.
type Kind string

const (
	KindTransportTimeout           Kind = "TransportTimeout"
	KindTransportServerError       Kind = "TransportServerError"
	KindTransportClientError       Kind = "TransportClientError"
	KindExtractionEnvelopeError    Kind = "ExtractionEnvelopeError"
	KindExtractionBoundaryNotFound Kind = "ExtractionBoundaryNotFound"
	KindExtractionSchemaError      Kind = "ExtractionSchemaError"
	KindUnexpected                 Kind = "UnexpectedError"
)

// Retryable reports whether the transport may try again after a failure of
// this kind.
func (k Kind) Retryable() bool {
	return k == KindTransportTimeout || k == KindTransportServerError
}

// Stage names the structuring step an error originated from.
type Stage string

const (
	StageNetwork Stage = "network"
	StageParse   Stage = "parse"
)

// Extraction failure modes. Each is wrapped by an [Error] of the matching
// kind, so callers can use [errors.Is] to tell them apart.
var (
	// ErrEnvelopeInvalid: the upstream body is not a valid response envelope.
	ErrEnvelopeInvalid = errors.New("response envelope is not valid JSON")
	// ErrTextMissing: the envelope carries no text content block.
	ErrTextMissing = errors.New("response envelope has no text content")
	// ErrBoundaryNotFound: no '[' ... ']' pair in the model text.
	ErrBoundaryNotFound = errors.New("no JSON array boundaries in model text")
	// ErrArrayInvalid: the isolated substring does not parse as a JSON array.
	ErrArrayInvalid = errors.New("isolated array is not valid JSON")
	// ErrUnitInvalid: an array element does not match the unit shape.
	ErrUnitInvalid = errors.New("array element is not a valid unit")
)

// Error is the typed failure reported by every structuring stage.
type Error struct {
	Kind  Kind
	Stage Stage
	// Status is the upstream HTTP status for transport errors that got a
	// response, zero otherwise.
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Stage != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Stage))
		b.WriteString(")")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind wrapping err.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithStage returns err tagged with stage. Errors that are not an *Error are
// wrapped as [KindUnexpected]. An existing stage is never overwritten.
func WithStage(err error, stage Stage) error {
	if err == nil {
		return nil
	}

	var sectionErr *Error
	if !errors.As(err, &sectionErr) {
		return &Error{Kind: KindUnexpected, Stage: stage, Err: err}
	}
	if sectionErr.Stage != "" {
		return err
	}

	tagged := *sectionErr
	tagged.Stage = stage
	return &tagged
}

// KindOf returns the kind of err, or [KindUnexpected] when err carries none.
func KindOf(err error) Kind {
	var sectionErr *Error
	if errors.As(err, &sectionErr) {
		return sectionErr.Kind
	}
	return KindUnexpected
}

// StageOf returns the stage err is tagged with, if any.
func StageOf(err error) Stage {
	var sectionErr *Error
	if errors.As(err, &sectionErr) {
		return sectionErr.Stage
	}
	return ""
}

// StatusOf maps err to the HTTP status reported to the caller: 504 for
// exhausted timeouts, the upstream's own status for upstream HTTP errors and
// 500 for everything else.
func StatusOf(err error) int {
	var sectionErr *Error
	if !errors.As(err, &sectionErr) {
		return http.StatusInternalServerError
	}

	switch sectionErr.Kind {
	case KindTransportTimeout:
		return http.StatusGatewayTimeout
	case KindTransportClientError, KindTransportServerError:
		if sectionErr.Status >= 400 && sectionErr.Status <= 599 {
			return sectionErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
