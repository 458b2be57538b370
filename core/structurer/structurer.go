package structurer

import (
	"context"
	"net/http"
	"time"

	"github.com/leofalp/textstruct/core/extract"
	"github.com/leofalp/textstruct/core/section"
	"github.com/leofalp/textstruct/internal/diag"
	"github.com/leofalp/textstruct/providers/ai/anthropic"
	"github.com/leofalp/textstruct/providers/observability"
)

const (
	DefaultModel       = "claude-3-sonnet-20240229"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.1
)

// Sender performs one logical request with retries. *transport.Transport
// satisfies it.
type Sender interface {
	Send(ctx context.Context, endpoint string, headers http.Header, payload any, maxAttempts int) (string, error)
}

// Config holds the model call parameters.
type Config struct {
	BaseURL string
	APIKey  string
	Version string
	Model   string

	MaxTokens int
	// Temperature is omitted from the request when nil.
	Temperature *float64
	// MaxAttempts is passed to the Sender; zero selects its default.
	MaxAttempts int
}

// DefaultConfig returns the call parameters used when nothing is configured.
func DefaultConfig() Config {
	temperature := DefaultTemperature
	return Config{
		BaseURL:     anthropic.DefaultBaseURL,
		Version:     anthropic.DefaultVersion,
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: &temperature,
	}
}

// Structurer turns one text into a section.Result.
type Structurer struct {
	sender    Sender
	extractor *extract.Extractor
	config    Config
	observer  observability.Provider
}

// Option configures a Structurer.
type Option func(*Structurer)

// WithExtractor replaces the default strict extractor.
func WithExtractor(extractor *extract.Extractor) Option {
	return func(s *Structurer) {
		if extractor != nil {
			s.extractor = extractor
		}
	}
}

// WithObserver sets the observability provider. A provider carried by the
// context takes precedence.
func WithObserver(observer observability.Provider) Option {
	return func(s *Structurer) {
		s.observer = observability.OrNop(observer)
	}
}

// New returns a Structurer sending through sender. Zero fields of config fall
// back to DefaultConfig.
func New(sender Sender, config Config, opts ...Option) *Structurer {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Version == "" {
		config.Version = defaults.Version
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}

	s := &Structurer{
		sender:    sender,
		extractor: extract.New(),
		config:    config,
		observer:  observability.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Structure asks the model to split text into units. A non-empty
// previousExample is embedded in the prompt so the model reuses its labels.
//
// Transport failures come back tagged [section.StageNetwork] and extraction
// failures [section.StageParse], each keeping its original kind.
func (s *Structurer) Structure(ctx context.Context, text, previousExample string) (section.Result, error) {
	logger := diag.FromContext(ctx)
	observer := observability.FromContextOr(ctx, s.observer)
	start := time.Now()

	request := anthropic.NewUserRequest(s.config.Model, s.config.MaxTokens, s.config.Temperature,
		BuildPrompt(text, previousExample))
	endpoint := anthropic.MessagesURL(s.config.BaseURL)

	observer.Debug(ctx, "Structuring text",
		observability.String(observability.AttrLLMModel, s.config.Model),
		observability.String(observability.AttrLLMEndpoint, endpoint),
		observability.Int(observability.AttrLLMMaxTokens, s.config.MaxTokens),
		observability.Bool(observability.AttrStructuringHasExample, previousExample != ""),
	)

	raw, err := s.sender.Send(ctx, endpoint, anthropic.Headers(s.config.APIKey, s.config.Version), request, s.config.MaxAttempts)
	if err != nil {
		err = section.WithStage(err, section.StageNetwork)
		s.fail(ctx, err)
		return nil, err
	}
	logger.Info("Raw API response", "response", raw)

	result, err := s.extractor.Extract(ctx, raw)
	if err != nil {
		err = section.WithStage(err, section.StageParse)
		s.fail(ctx, err)
		return nil, err
	}

	logger.Info("Extracted units",
		observability.AttrStructuringUnits, len(result),
		"types", result.Types(),
	)
	observer.Debug(ctx, "Text structured",
		observability.Int(observability.AttrStructuringUnits, len(result)),
		observability.Duration(observability.AttrDuration, time.Since(start)),
	)
	return result, nil
}

func (s *Structurer) fail(ctx context.Context, err error) {
	diag.FromContext(ctx).Error("Structuring failed",
		observability.AttrErrorKind, string(section.KindOf(err)),
		observability.AttrErrorStage, string(section.StageOf(err)),
		observability.AttrError, err.Error(),
	)
	observability.FromContextOr(ctx, s.observer).Warn(ctx, "Structuring failed",
		observability.String(observability.AttrErrorKind, string(section.KindOf(err))),
		observability.String(observability.AttrErrorStage, string(section.StageOf(err))),
		observability.Error(err),
	)
}
