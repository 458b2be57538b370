// Package config loads the service configuration from a YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/textstruct/core/structurer"
	"github.com/leofalp/textstruct/core/transport"
	"github.com/leofalp/textstruct/providers/ai/anthropic"
)

// Config is the full service configuration.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Anthropic struct {
		APIKey    string `yaml:"api_key"`
		BaseURL   string `yaml:"base_url"`
		Version   string `yaml:"version"`
		Model     string `yaml:"model"`
		MaxTokens int    `yaml:"max_tokens"`
		// Temperature is omitted from requests when unset.
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"anthropic"`

	Transport struct {
		Timeout     time.Duration `yaml:"timeout"`
		BackoffUnit time.Duration `yaml:"backoff_unit"`
		MaxAttempts int           `yaml:"max_attempts"`
	} `yaml:"transport"`

	Extract struct {
		Repair bool `yaml:"repair"`
	} `yaml:"extract"`

	Log struct {
		Dir    string `yaml:"dir"`
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads configuration from path, or from the first default location that
// exists when path is empty. A .env file in the working directory is loaded
// into the environment first; variables already set are kept.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if path == "" {
		path = findDefault()
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	if err := mergeWithEnv(config); err != nil {
		return nil, err
	}
	applyDefaults(config)
	return config, nil
}

func findDefault() string {
	locations := []string{
		"textstruct.yaml",
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/textstruct/config.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Anthropic.BaseURL == "" {
		config.Anthropic.BaseURL = anthropic.DefaultBaseURL
	}
	if config.Anthropic.Version == "" {
		config.Anthropic.Version = anthropic.DefaultVersion
	}
	if config.Anthropic.Model == "" {
		config.Anthropic.Model = structurer.DefaultModel
	}
	if config.Anthropic.MaxTokens == 0 {
		config.Anthropic.MaxTokens = structurer.DefaultMaxTokens
	}
	if config.Anthropic.Temperature == nil {
		temperature := structurer.DefaultTemperature
		config.Anthropic.Temperature = &temperature
	}

	if config.Transport.Timeout == 0 {
		config.Transport.Timeout = transport.DefaultTimeout
	}
	if config.Transport.BackoffUnit == 0 {
		config.Transport.BackoffUnit = transport.DefaultBackoffUnit
	}
	if config.Transport.MaxAttempts == 0 {
		config.Transport.MaxAttempts = transport.DefaultMaxAttempts
	}

	if config.Log.Dir == "" {
		config.Log.Dir = "logs"
	}
	if config.Log.Level == "" {
		config.Log.Level = "INFO"
	}
	if config.Log.Format == "" {
		config.Log.Format = "compact"
	}
}

func mergeWithEnv(config *Config) error {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Anthropic.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_BASE_URL"); v != "" {
		config.Anthropic.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		config.Anthropic.Model = v
	}
	if v := os.Getenv("TEXTSTRUCT_ADDR"); v != "" {
		config.Server.Addr = v
	}
	if v := os.Getenv("TEXTSTRUCT_ALLOWED_ORIGINS"); v != "" {
		config.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TEXTSTRUCT_LOG_DIR"); v != "" {
		config.Log.Dir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("TEXTSTRUCT_LOG_FORMAT"); v != "" {
		config.Log.Format = v
	}
	if v := os.Getenv("TEXTSTRUCT_EXTRACT_REPAIR"); v != "" {
		repair, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTSTRUCT_EXTRACT_REPAIR %q: %w", v, err)
		}
		config.Extract.Repair = repair
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports configuration errors that must stop the service from
// starting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Anthropic.APIKey) == "" {
		errs = append(errs, errors.New("anthropic API key is required (set ANTHROPIC_API_KEY)"))
	}
	if c.Anthropic.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("anthropic.max_tokens must be positive, got %d", c.Anthropic.MaxTokens))
	}
	if t := c.Anthropic.Temperature; t != nil && (*t < 0 || *t > 1) {
		errs = append(errs, fmt.Errorf("anthropic.temperature must be within [0, 1], got %v", *t))
	}
	if c.Transport.Timeout < 0 {
		errs = append(errs, fmt.Errorf("transport.timeout must be positive, got %s", c.Transport.Timeout))
	}
	if c.Transport.BackoffUnit < 0 {
		errs = append(errs, fmt.Errorf("transport.backoff_unit must be positive, got %s", c.Transport.BackoffUnit))
	}
	if c.Transport.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("transport.max_attempts must be positive, got %d", c.Transport.MaxAttempts))
	}
	if c.Log.Dir == "" {
		errs = append(errs, errors.New("log.dir is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
