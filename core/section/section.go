package section

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Unit is one labeled section of an input text.
type Unit struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Result is the ordered list of units produced for exactly one input text.
// Order follows the original text; IDs are unique within a Result.
type Result []Unit

// CombinedResponse is the payload returned for a successful two-text request.
type CombinedResponse struct {
	ProcessID   string `json:"processId"`
	StructuredA Result `json:"structuredA"`
	StructuredB Result `json:"structuredB"`
}

// Serialize renders r as two-space indented JSON. HTML escaping is disabled so
// the text is embedded in prompts exactly as the model produced it.
func (r Result) Serialize() (string, error) {
	units := r
	if units == nil {
		units = Result{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(units); err != nil {
		return "", fmt.Errorf("error serializing structuring result: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Types returns the distinct type labels of r in first-seen order.
func (r Result) Types() []string {
	seen := make(map[string]struct{}, len(r))
	types := make([]string, 0, len(r))
	for _, unit := range r {
		if _, ok := seen[unit.Type]; ok {
			continue
		}
		seen[unit.Type] = struct{}{}
		types = append(types, unit.Type)
	}
	return types
}
