package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/textstruct/core/section"
	"github.com/leofalp/textstruct/providers/ai/anthropic"
	"github.com/leofalp/textstruct/providers/observability"
)

// Extractor turns a raw Messages API response into a section.Result.
type Extractor struct {
	repair   bool
	observer observability.Provider
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRepair lets the extractor run jsonrepair once over an isolated array
// that is not valid JSON. Every repair is logged at WARN level; the repaired
// array still goes through full unit validation.
func WithRepair(enabled bool) Option {
	return func(e *Extractor) {
		e.repair = enabled
	}
}

// WithObserver sets the provider repairs are reported to. A provider carried
// by the context takes precedence.
func WithObserver(observer observability.Provider) Option {
	return func(e *Extractor) {
		e.observer = observability.OrNop(observer)
	}
}

// New returns a strict Extractor adjusted by opts.
func New(opts ...Option) *Extractor {
	e := &Extractor{observer: observability.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// Extract runs the default strict extractor over raw.
func Extract(raw string) (section.Result, error) {
	return defaultExtractor.Extract(context.Background(), raw)
}

// Extract decodes the outer envelope, isolates the JSON array embedded in the
// model text and validates every element as a unit. Any failure rejects the
// whole batch with an *section.Error wrapping one of the section.Err*
// sentinels.
func (e *Extractor) Extract(ctx context.Context, raw string) (section.Result, error) {
	text, err := EnvelopeText(raw)
	if err != nil {
		return nil, err
	}

	array, err := IsolateArray(text)
	if err != nil {
		return nil, err
	}

	elements, err := e.decodeArray(ctx, array)
	if err != nil {
		return nil, err
	}

	return ValidateUnits(elements)
}

// EnvelopeText decodes raw as a Messages API response and returns its text.
func EnvelopeText(raw string) (string, error) {
	var response anthropic.Response
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		return "", section.NewError(section.KindExtractionEnvelopeError,
			"response preview: "+observability.TruncateStringDefault(raw),
			fmt.Errorf("%w: %w", section.ErrEnvelopeInvalid, err))
	}

	text, found := response.Text()
	if !found || strings.TrimSpace(text) == "" {
		return "", section.NewError(section.KindExtractionEnvelopeError, "", section.ErrTextMissing)
	}
	return text, nil
}

// IsolateArray returns the substring of text from the first '[' to the last
// ']'. Prose around the array is dropped. Text holding several separate
// arrays yields everything between the outermost brackets, which then fails
// to parse.
func IsolateArray(text string) (string, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < 0 || end < start {
		return "", section.NewError(section.KindExtractionBoundaryNotFound,
			"model text: "+observability.TruncateStringDefault(text),
			section.ErrBoundaryNotFound)
	}
	return text[start : end+1], nil
}

// decodeArray parses array as a JSON array, optionally repairing it once.
func (e *Extractor) decodeArray(ctx context.Context, array string) ([]json.RawMessage, error) {
	var elements []json.RawMessage
	err := json.Unmarshal([]byte(array), &elements)
	if err == nil {
		return elements, nil
	}

	if !e.repair {
		return nil, section.NewError(section.KindExtractionSchemaError,
			"isolated array: "+observability.TruncateStringDefault(array),
			fmt.Errorf("%w: %w", section.ErrArrayInvalid, err))
	}

	repaired, repairErr := jsonrepair.JSONRepair(array)
	if repairErr != nil {
		return nil, section.NewError(section.KindExtractionSchemaError,
			"isolated array could not be repaired",
			fmt.Errorf("%w: %w (repair error: %v)", section.ErrArrayInvalid, err, repairErr))
	}

	observability.FromContextOr(ctx, e.observer).Warn(ctx, "Repaired malformed JSON array from model output",
		observability.Error(err),
		observability.String("original", observability.TruncateStringDefault(array)),
		observability.String("repaired", observability.TruncateStringDefault(repaired)),
	)

	elements = nil
	if err := json.Unmarshal([]byte(repaired), &elements); err != nil {
		return nil, section.NewError(section.KindExtractionSchemaError,
			"repaired array is not a JSON array",
			fmt.Errorf("%w: %w", section.ErrArrayInvalid, err))
	}
	return elements, nil
}

// ValidateUnits checks every element against the unit shape: an object with
// an integer "id", a string "type" and a string "content". null counts as
// missing, and IDs must be unique.
func ValidateUnits(elements []json.RawMessage) (section.Result, error) {
	result := make(section.Result, 0, len(elements))
	seen := make(map[int]struct{}, len(elements))

	for index, element := range elements {
		unit, err := decodeUnit(element)
		if err != nil {
			return nil, unitError(index, err)
		}
		if _, dup := seen[unit.ID]; dup {
			return nil, unitError(index, fmt.Errorf("duplicate id %d", unit.ID))
		}
		seen[unit.ID] = struct{}{}
		result = append(result, unit)
	}

	return result, nil
}

func unitError(index int, err error) error {
	return section.NewError(section.KindExtractionSchemaError, "",
		fmt.Errorf("%w: element %d: %w", section.ErrUnitInvalid, index, err))
}

// decodeUnit validates and decodes a single array element.
func decodeUnit(element json.RawMessage) (section.Unit, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(element, &fields); err != nil || fields == nil {
		return section.Unit{}, fmt.Errorf("not a JSON object: %s", observability.TruncateString(string(element), 100))
	}

	var unit section.Unit
	if err := decodeField(fields, "id", &unit.ID); err != nil {
		return section.Unit{}, err
	}
	if err := decodeField(fields, "type", &unit.Type); err != nil {
		return section.Unit{}, err
	}
	if err := decodeField(fields, "content", &unit.Content); err != nil {
		return section.Unit{}, err
	}
	return unit, nil
}

var jsonNull = []byte("null")

// decodeField decodes fields[name] into target, rejecting absent and null
// values. encoding/json already refuses strings for int targets, non-integral
// numbers for int targets and numbers for string targets.
func decodeField(fields map[string]json.RawMessage, name string, target any) error {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return fmt.Errorf("missing field %q", name)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return nil
}
