// Package generate calls the Gemini generateContent API.
package generate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/codingjr/jrchat"
)

// Default generation settings.
const (
	DefaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel           = "gemini-1.5-flash"
	DefaultTemperature     = 0.7
	DefaultTopP            = 0.8
	DefaultTopK            = 40
	DefaultMaxOutputTokens = 2048
	DefaultTimeout         = 60 * time.Second
)

// Request is a single generation call.
type Request struct {
	// APIKey is the credential for this call. It is resolved by the caller
	// each time so configuration changes apply without a restart.
	APIKey string
	// Prompt is the full text sent as the only content part.
	Prompt string
}

// Generator turns a prompt into answer text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options configures a Generator. Zero values and nil pointers take the
// defaults above.
type Options struct {
	BaseURL         string
	Model           string
	Temperature     *float64
	TopP            *float64
	TopK            int
	MaxOutputTokens int
	Timeout         time.Duration
	HTTPClient      *http.Client
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Temperature == nil {
		o.Temperature = ptr(DefaultTemperature)
	}
	if o.TopP == nil {
		o.TopP = ptr(DefaultTopP)
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxOutputTokens == 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// OptionsFromConfig maps host configuration to generator options.
func OptionsFromConfig(cfg *jrchat.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		BaseURL:         jrchat.ResolveBaseURL(cfg),
		Model:           jrchat.ResolveModel(cfg),
		Temperature:     cfg.Gemini.Temperature,
		TopP:            cfg.Gemini.TopP,
		TopK:            cfg.Gemini.TopK,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Timeout:         jrchat.RequestTimeout(cfg),
	}
}

// New returns the generator selected by backend ("rest" or "sdk").
func New(backend string, opts Options) (Generator, error) {
	switch backend {
	case "", "rest":
		return NewClient(opts), nil
	case "sdk":
		return NewSDKClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown gemini backend %q", backend)
	}
}

func ptr(v float64) *float64 { return &v }
