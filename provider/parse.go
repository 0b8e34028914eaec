package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/contentops/polyglot/pipeerr"
)

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseResult extracts the structured translation object from the model's
// response text. Models sometimes wrap the object in a markdown code fence or
// add prose around it; both are stripped. A response without a translated
// body is malformed and retryable.
func ParseResult(content string) (*Result, error) {
	raw := content
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	// Clamp to the outermost JSON object.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response (raw: %s)",
			pipeerr.ErrMalformedResponse, truncate(raw, 300))
	}
	content = content[start : end+1]

	var res Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)",
			pipeerr.ErrMalformedResponse, err, truncate(raw, 300))
	}
	if res.TranslatedBody == "" {
		return nil, fmt.Errorf("%w: missing translatedBody field (raw: %s)",
			pipeerr.ErrMalformedResponse, truncate(raw, 300))
	}
	return &res, nil
}
