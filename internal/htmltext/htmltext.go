// Package htmltext normalizes input texts before structuring. HTML inputs are
// converted to Markdown so the model sees the document text and its headings
// instead of markup.
package htmltext

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Format names how an input text is encoded.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// ParseFormat accepts "", "text", "plain" and "html", case-insensitively.
// The empty string means plain text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "plain":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported input format %q", s)
	}
}

// Normalize returns text ready to be structured. Plain text is returned
// unchanged; HTML is converted to Markdown.
func Normalize(text string, format Format) (string, error) {
	if format != FormatHTML {
		return text, nil
	}

	markdown, err := htmltomarkdown.ConvertString(text)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
