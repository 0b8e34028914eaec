// Package provider implements the AI provider boundary: one synchronous
// Complete(system, user) call returning a structured translation result.
//
// Providers are HTTP API based and speak one of three wire formats (OpenAI
// chat completions, Google Gemini generateContent, Anthropic messages).
// Timeouts, backoff, and rate-limit handling live here; callers see either a
// parsed result or a retryable error, never partial state.
package provider

import (
	"time"
)

// Provider IDs.
const (
	ProviderOpenAI       = "openai"
	ProviderAnthropic    = "anthropic"
	ProviderGoogle       = "google"
	ProviderGroq         = "groq"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
)

// Provider holds the configuration for an AI translation service.
type Provider struct {
	// ID is the provider identifier (openai, anthropic, google, ...).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries is the retry budget for 429/5xx/network failures.
	MaxRetries int
	// OnLog emits debug log messages (nil = silent).
	OnLog func(format string, args ...any)
}

// Defaults returns the pre-configured provider definitions.
func Defaults() map[string]Provider {
	return map[string]Provider{
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 120 * time.Second,
		},
		ProviderAnthropic: {
			ID:      ProviderAnthropic,
			Name:    "Anthropic",
			BaseURL: "https://api.anthropic.com/v1",
			Timeout: 120 * time.Second,
		},
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Timeout: 120 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Timeout: 60 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
	}
}

// Result is the structured object every translation call must return.
type Result struct {
	TranslatedBody  string   `json:"translatedBody"`
	TranslatedTitle string   `json:"translatedTitle"`
	Summary         string   `json:"summary"`
	QualityScore    int      `json:"qualityScore"`
	Issues          []string `json:"issues"`

	// Transport-level metadata, filled from the provider response envelope.
	InputTokens  int    `json:"-"`
	OutputTokens int    `json:"-"`
	Model        string `json:"-"`
}

func (p *Provider) log(format string, args ...any) {
	if p.OnLog != nil {
		p.OnLog(format, args...)
	}
}

func (p *Provider) effectiveTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 120 * time.Second
}

func (p *Provider) effectiveMaxRetries() int {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return 3
}
