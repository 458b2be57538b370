package anthropic

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// Request represents the request body for Anthropic's Messages API.
type Request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"` // Required by Anthropic on every request
	Temperature *float64  `json:"temperature,omitempty"`
	Messages    []Message `json:"messages"`
}

// Message represents a single message in the conversation. Content is sent in
// the plain-string form, which Anthropic treats as one text block.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

// Response represents the response from Anthropic's Messages API.
type Response struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`    // "message"
	Role         string         `json:"role"`    // "assistant"
	Content      []ContentBlock `json:"content"` // Response content blocks
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        Usage          `json:"usage"`
}

// ContentBlock represents a content block in the response.
// Only "text" blocks are read; other types are ignored.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage reports token consumption for a single request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
