// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AIConfig holds settings for the generative model used by the
// model-assisted validators.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model" validate:"required"`

	// APIKey is the authentication key for the AI API. Usually loaded from
	// .secrets/anthropic-api-key or ANTHROPIC_API_KEY rather than config.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens bounds each model response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`

	// Temperature is fixed at 0 for verification by default.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=1"`

	// MaxRetries is the number of retry attempts for failed model calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// Timeout bounds a single model call including its HTTP round trip.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// VerifyConfig holds settings for the verification loop.
type VerifyConfig struct {
	// MaxRetries is the number of auto-fix rounds before forced escalation
	// (default 2, so at most three verification attempts).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// TrapTextLimit is the number of leading characters of the document
	// given to the trap detector's model phase (default 4000).
	TrapTextLimit int `json:"trap_text_limit" yaml:"trap_text_limit" mapstructure:"trap_text_limit" validate:"gt=0"`

	// Concurrency is the number of documents verified in parallel by batch runs.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1"`
}

// ExtractionConfig holds settings for the container-backed layout extractor.
type ExtractionConfig struct {
	// Image is the layout-extraction container image.
	Image string `json:"image" yaml:"image" mapstructure:"image" validate:"required"`

	// Timeout bounds one extraction run.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// MaxRetries is the number of retries for a failed extraction (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// OutputDir is where extracted bundles are written.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig locates the ground-truth database.
type StoreConfig struct {
	// Path is the SQLite database file (e.g. "data/groundtruth.db").
	Path string `json:"path" yaml:"path" mapstructure:"path" validate:"required"`
}

// PipelineConfig groups every component configuration.
type PipelineConfig struct {
	AI         AIConfig         `json:"ai" yaml:"ai" mapstructure:"ai"`
	Verify     VerifyConfig     `json:"verify" yaml:"verify" mapstructure:"verify"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
}

// DefaultPipelineConfig returns the configuration used when nothing is set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		AI: AIConfig{
			Model:      "claude-sonnet-4-5-20250929",
			MaxTokens:  4096,
			MaxRetries: 3,
			Timeout:    2 * time.Minute,
		},
		Verify: VerifyConfig{
			MaxRetries:    2,
			TrapTextLimit: 4000,
			Concurrency:   4,
		},
		Extraction: ExtractionConfig{
			Image:      "layout-extract:latest",
			Timeout:    5 * time.Minute,
			MaxRetries: 2,
			OutputDir:  "data/bundles",
		},
		Store: StoreConfig{
			Path: "data/groundtruth.db",
		},
	}
}

// Validate checks every field constraint declared in the struct tags.
func (c PipelineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
