package provider

import (
	"errors"
	"testing"

	"github.com/contentops/polyglot/pipeerr"
)

// ---------------------------------------------------------------------------
// extractCompletion
// ---------------------------------------------------------------------------

func TestExtractCompletion_OpenAIChat(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o-2024-08-06",
		"choices": [{"message": {"content": "translated text"}}],
		"usage": {"prompt_tokens": 120, "completion_tokens": 80}
	}`)
	c, err := extractCompletion(body, formatOpenAIChat)
	if err != nil {
		t.Fatalf("extractCompletion: %v", err)
	}
	if c.text != "translated text" {
		t.Errorf("text = %q", c.text)
	}
	if c.inputTokens != 120 || c.outputTokens != 80 {
		t.Errorf("tokens = %d/%d, want 120/80", c.inputTokens, c.outputTokens)
	}
	if c.model != "gpt-4o-2024-08-06" {
		t.Errorf("model = %q", c.model)
	}
}

func TestExtractCompletion_GeminiNative(t *testing.T) {
	body := []byte(`{
		"candidates": [{"content": {"parts": [{"text": "translated text"}]}}],
		"usageMetadata": {"promptTokenCount": 50, "candidatesTokenCount": 40},
		"modelVersion": "gemini-2.5-flash"
	}`)
	c, err := extractCompletion(body, formatGeminiNative)
	if err != nil {
		t.Fatalf("extractCompletion: %v", err)
	}
	if c.text != "translated text" || c.inputTokens != 50 || c.outputTokens != 40 {
		t.Errorf("completion = %+v", c)
	}
}

func TestExtractCompletion_Anthropic(t *testing.T) {
	body := []byte(`{
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": "translated text"}],
		"usage": {"input_tokens": 70, "output_tokens": 30}
	}`)
	c, err := extractCompletion(body, formatAnthropic)
	if err != nil {
		t.Fatalf("extractCompletion: %v", err)
	}
	if c.text != "translated text" || c.inputTokens != 70 || c.outputTokens != 30 {
		t.Errorf("completion = %+v", c)
	}
}

func TestExtractCompletion_EmptyEnvelopeIsMalformed(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		format apiFormat
	}{
		{"openai no choices", `{"choices": []}`, formatOpenAIChat},
		{"gemini no candidates", `{"candidates": []}`, formatGeminiNative},
		{"anthropic no text block", `{"content": [{"type": "tool_use"}]}`, formatAnthropic},
		{"not json", `<html>502</html>`, formatOpenAIChat},
	}
	for _, tc := range cases {
		_, err := extractCompletion([]byte(tc.body), tc.format)
		if !errors.Is(err, pipeerr.ErrMalformedResponse) {
			t.Errorf("%s: expected ErrMalformedResponse, got %v", tc.name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Provider defaults
// ---------------------------------------------------------------------------

func TestDefaults_KnownProviders(t *testing.T) {
	defaults := Defaults()
	for _, id := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderGroq, ProviderOllama, ProviderCustomOpenAI} {
		p, ok := defaults[id]
		if !ok {
			t.Errorf("no defaults for %q", id)
			continue
		}
		if p.Model == "" {
			t.Errorf("%q has no default model", id)
		}
		if p.BaseURL == "" {
			t.Errorf("%q has no base URL", id)
		}
	}
}

func TestFormatFor(t *testing.T) {
	if formatFor(ProviderGoogle) != formatGeminiNative {
		t.Error("google must use the Gemini native format")
	}
	if formatFor(ProviderAnthropic) != formatAnthropic {
		t.Error("anthropic must use the Anthropic format")
	}
	if formatFor(ProviderGroq) != formatOpenAIChat {
		t.Error("groq must use the OpenAI chat format")
	}
}
