package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/contentops/polyglot/pipeerr"
)

// apiFormat selects the wire format for a provider.
type apiFormat int

const (
	formatOpenAIChat apiFormat = iota
	formatGeminiNative
	formatAnthropic
)

func formatFor(id string) apiFormat {
	switch id {
	case ProviderGoogle:
		return formatGeminiNative
	case ProviderAnthropic:
		return formatAnthropic
	default:
		return formatOpenAIChat
	}
}

// completion is the transport-level outcome of one call.
type completion struct {
	text         string
	inputTokens  int
	outputTokens int
	model        string
}

// Complete sends one synchronous translation request and parses the
// structured result. Retries on 429, 5xx, and network failures up to the
// retry budget; every transport failure is wrapped as a retryable provider
// error with no durable state mutated.
func (p *Provider) Complete(ctx context.Context, systemPrompt, userContent string) (*Result, error) {
	comp, err := p.call(ctx, systemPrompt, userContent)
	if err != nil {
		return nil, err
	}
	res, err := ParseResult(comp.text)
	if err != nil {
		return nil, err
	}
	res.InputTokens = comp.inputTokens
	res.OutputTokens = comp.outputTokens
	res.Model = comp.model
	if res.Model == "" {
		res.Model = p.Model
	}
	return res, nil
}

func (p *Provider) call(ctx context.Context, systemPrompt, userContent string) (*completion, error) {
	format := formatFor(p.ID)
	endpoint, headers, body, err := p.buildRequest(systemPrompt, userContent, format)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", pipeerr.ErrProvider, err)
	}

	client := makeHTTPClient(p.Proxy, p.effectiveTimeout())
	maxRetries := p.effectiveMaxRetries()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", pipeerr.ErrProvider, ctx.Err())
		default:
		}

		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: creating request: %v", pipeerr.ErrProvider, err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		p.log("[DEBUG] %s attempt %d: POST %s (model: %s)", p.Name, attempt+1, endpoint, p.Model)

		resp, err := client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if werr := waitBackoff(ctx, attempt); werr != nil {
					return nil, fmt.Errorf("%w: %v", pipeerr.ErrProvider, werr)
				}
				continue
			}
			return nil, fmt.Errorf("%w: request failed: %v", pipeerr.ErrProvider, err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryDelay := parseRetryDelay(respBody)
			p.log("[WARN] %s rate limited, waiting %v (attempt %d/%d)", p.Name, retryDelay, attempt+1, maxRetries)
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return nil, fmt.Errorf("%w: %v", pipeerr.ErrProvider, ctx.Err())
				case <-time.After(retryDelay):
				}
				continue
			}
			return nil, fmt.Errorf("%w: rate limited after %d retries", pipeerr.ErrProvider, maxRetries)
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < maxRetries && resp.StatusCode >= 500 {
				if werr := waitBackoff(ctx, attempt); werr != nil {
					return nil, fmt.Errorf("%w: %v", pipeerr.ErrProvider, werr)
				}
				continue
			}
			return nil, fmt.Errorf("%w: status %d: %s", pipeerr.ErrProvider, resp.StatusCode, truncate(string(respBody), 500))
		}

		comp, err := extractCompletion(respBody, format)
		if err != nil {
			return nil, err
		}
		return comp, nil
	}

	return nil, fmt.Errorf("%w: exhausted all %d retries", pipeerr.ErrProvider, maxRetries)
}

// buildRequest constructs the endpoint, headers, and body for one call.
func (p *Provider) buildRequest(systemPrompt, userContent string, format apiFormat) (string, map[string]string, []byte, error) {
	headers := map[string]string{"Content-Type": "application/json"}

	var endpoint string
	var body []byte
	var err error

	switch format {
	case formatGeminiNative:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(p.BaseURL, "/"), p.Model)
		if p.APIKey != "" {
			headers["x-goog-api-key"] = p.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userContent)

	case formatAnthropic:
		endpoint = strings.TrimRight(p.BaseURL, "/") + "/messages"
		if p.APIKey != "" {
			headers["x-api-key"] = p.APIKey
		}
		headers["anthropic-version"] = "2023-06-01"
		body, err = buildAnthropicRequest(p.Model, systemPrompt, userContent)

	default:
		endpoint = strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
		if p.APIKey != "" {
			headers["Authorization"] = "Bearer " + p.APIKey
		}
		body, err = buildOpenAIChatRequest(p.Model, systemPrompt, userContent)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

func buildOpenAIChatRequest(model, systemPrompt, userContent string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0.3,
		Stream:      false,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userContent string) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userContent}}},
		},
		GenerationConfig: genConfig{Temperature: 0.3},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

func buildAnthropicRequest(model, systemPrompt, userContent string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    string `json:"system,omitempty"`
		Messages  []msg  `json:"messages"`
	}{
		Model:     model,
		MaxTokens: 8192,
		System:    systemPrompt,
		Messages: []msg{
			{Role: "user", Content: userContent},
		},
	}
	return json.Marshal(req)
}

// extractCompletion parses the provider response envelope into text plus
// token usage.
func extractCompletion(body []byte, format apiFormat) (*completion, error) {
	switch format {
	case formatGeminiNative:
		var resp struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
			UsageMetadata struct {
				PromptTokenCount     int `json:"promptTokenCount"`
				CandidatesTokenCount int `json:"candidatesTokenCount"`
			} `json:"usageMetadata"`
			ModelVersion string `json:"modelVersion"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, malformed(body, err)
		}
		if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, malformed(body, fmt.Errorf("no candidates"))
		}
		return &completion{
			text:         resp.Candidates[0].Content.Parts[0].Text,
			inputTokens:  resp.UsageMetadata.PromptTokenCount,
			outputTokens: resp.UsageMetadata.CandidatesTokenCount,
			model:        resp.ModelVersion,
		}, nil

	case formatAnthropic:
		var resp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			Usage struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
			Model string `json:"model"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, malformed(body, err)
		}
		for _, block := range resp.Content {
			if block.Type == "text" {
				return &completion{
					text:         block.Text,
					inputTokens:  resp.Usage.InputTokens,
					outputTokens: resp.Usage.OutputTokens,
					model:        resp.Model,
				}, nil
			}
		}
		return nil, malformed(body, fmt.Errorf("no text block"))

	default:
		var resp struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
			Usage struct {
				PromptTokens     int `json:"prompt_tokens"`
				CompletionTokens int `json:"completion_tokens"`
			} `json:"usage"`
			Model string `json:"model"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, malformed(body, err)
		}
		if len(resp.Choices) == 0 {
			return nil, malformed(body, fmt.Errorf("no choices"))
		}
		return &completion{
			text:         resp.Choices[0].Message.Content,
			inputTokens:  resp.Usage.PromptTokens,
			outputTokens: resp.Usage.CompletionTokens,
			model:        resp.Model,
		}, nil
	}
}

func malformed(raw []byte, cause error) error {
	return fmt.Errorf("%w: %v (raw: %s)", pipeerr.ErrMalformedResponse, cause, truncate(string(raw), 500))
}

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with retryDelay field; defaults to
// 60s plus a 5s buffer.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}
	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}
	return defaultDelay
}

// waitBackoff sleeps for an exponential backoff interval, honoring ctx.
func waitBackoff(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// makeHTTPClient builds a client with proxy support: an explicit proxy URL
// wins, otherwise HTTP_PROXY/HTTPS_PROXY env vars apply.
func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
