// Package mask replaces non-translatable spans of a Markdown body with
// sentinel tokens before the text is sent to an AI model, and substitutes
// them back afterwards.
//
// Masking is an ordered sequence of regex matchers: embedded component tags,
// import statements, fenced code blocks, inline code, link targets. Order
// matters — broader patterns must mask before narrower ones inspect the
// remainder. Regex masking of nested markup is a best-effort heuristic; a
// stricter implementation could swap in a real markdown parser emitting a
// span list without changing the Extract/Restore contract.
//
// Contract: for an identity translation,
// Restore(Extract(x).Masked, Extract(x).Tokens) == x exactly.
package mask

import (
	"fmt"
	"regexp"
	"strings"
)

// Extraction holds masked text plus the token → original map.
type Extraction struct {
	Masked string
	Tokens map[string]string

	// order lists tokens in assignment order. Later matchers can capture
	// spans that already contain earlier tokens, so restoration walks the
	// list in reverse.
	order []string
}

// matchers in masking order. Self-closing and paired component tags are two
// alternatives of the same concern. The paired pattern cannot check that the
// closing tag name matches the opener (RE2 has no backreferences), so any
// capitalized closing tag ends the span.
var matchers = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<[A-Z][A-Za-z0-9]*\b[^>]*/>`),
	regexp.MustCompile(`(?s)<[A-Z][A-Za-z0-9]*\b[^>]*>.*?</[A-Z][A-Za-z0-9]*>`),
	regexp.MustCompile(`(?m)^import\s+.+$`),
	regexp.MustCompile("(?s)```.*?```|~~~.*?~~~"),
	regexp.MustCompile("`[^`\n]+`"),
	regexp.MustCompile(`\]\([^)\n]*\)`),
}

func sentinel(i int) string {
	return fmt.Sprintf("__MASK_%d__", i)
}

// Extract masks all non-translatable spans in content.
func Extract(content string) *Extraction {
	ex := &Extraction{
		Masked: content,
		Tokens: make(map[string]string),
	}
	n := 0
	for _, re := range matchers {
		ex.Masked = re.ReplaceAllStringFunc(ex.Masked, func(span string) string {
			tok := sentinel(n)
			n++
			ex.Tokens[tok] = span
			ex.order = append(ex.order, tok)
			return tok
		})
	}
	return ex
}

// Count returns the number of masked spans.
func (ex *Extraction) Count() int { return len(ex.order) }

// Restore substitutes every sentinel token in translated back to its
// original span. The returned slice lists tokens the AI dropped or mangled —
// an integrity signal for the similarity analyzer, not an error here.
func (ex *Extraction) Restore(translated string) (string, []string) {
	// Only top-level tokens appear in the masked text; tokens swallowed by a
	// broader later matcher come back when their enclosing span is restored.
	var missing []string
	for _, tok := range ex.order {
		if strings.Contains(ex.Masked, tok) && !strings.Contains(translated, tok) {
			missing = append(missing, tok)
		}
	}
	out := translated
	for i := len(ex.order) - 1; i >= 0; i-- {
		tok := ex.order[i]
		out = strings.ReplaceAll(out, tok, ex.Tokens[tok])
	}
	return out, missing
}
