package anthropic

import (
	"net/http"
	"strings"
)

const (
	// DefaultBaseURL is the canonical base URL for Anthropic's Messages API.
	DefaultBaseURL = "https://api.anthropic.com/v1"

	// MessagesEndpoint is the path for the Messages API endpoint.
	MessagesEndpoint = "/messages"

	// DefaultVersion is the anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently of the URL.
	DefaultVersion = "2023-06-01"

	// RoleUser is the role of caller-authored messages.
	RoleUser = "user"

	// BlockTypeText is the content block type carrying model text.
	BlockTypeText = "text"
)

// MessagesURL joins baseURL and the Messages endpoint, tolerating a trailing
// slash on baseURL. An empty baseURL selects DefaultBaseURL.
func MessagesURL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + MessagesEndpoint
}

// Headers returns the headers every Messages API request carries besides
// Content-Type. x-api-key carries the credential (Anthropic does not use
// Bearer tokens) and anthropic-version pins the wire format. An empty version
// selects DefaultVersion.
func Headers(apiKey, version string) http.Header {
	if version == "" {
		version = DefaultVersion
	}
	headers := http.Header{}
	headers.Set("X-API-Key", apiKey)
	headers.Set("anthropic-version", version)
	return headers
}

// NewUserRequest builds a single-turn request whose only message is prompt.
func NewUserRequest(model string, maxTokens int, temperature *float64, prompt string) Request {
	return Request{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []Message{
			{Role: RoleUser, Content: prompt},
		},
	}
}

// Text concatenates every text block of the response in order. The second
// return value is false when the response carries no text block at all.
func (r Response) Text() (string, bool) {
	var b strings.Builder
	found := false
	for _, block := range r.Content {
		if block.Type != BlockTypeText {
			continue
		}
		found = true
		b.WriteString(block.Text)
	}
	return b.String(), found
}
