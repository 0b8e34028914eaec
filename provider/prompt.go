package provider

import (
	"fmt"
	"strings"
)

// TranslationSystemPrompt constrains the model to translate only human text,
// preserve markdown structure and sentinel tokens verbatim, and return one
// structured JSON object.
const TranslationSystemPrompt = `You are a professional translator for a multilingual content site. You are translating a Markdown article into {{targetLang}}.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word.
- Maintain the original tone and intent, but express it naturally in {{targetLang}}.
- Keep brand names and proper nouns unchanged.

CRITICAL STRUCTURE PRESERVATION RULES:
- Preserve the Markdown structure exactly: same number of headings, same heading levels, same lists, same emphasis.
- Placeholder tokens of the form __MASK_N__ mark protected spans. Copy every one of them into the translation VERBATIM, in a natural position. Never translate, drop, renumber, or duplicate a placeholder.
- Do not add or remove paragraphs, headings, or links.

OUTPUT REQUIREMENTS:
Return ONLY one JSON object with these fields, no explanations and no markdown code fences:
{
  "translatedBody": "the translated Markdown body",
  "translatedTitle": "the translated article title",
  "summary": "a 1-2 sentence summary of the article in {{targetLang}}",
  "qualityScore": <your own 0-100 confidence in this translation>,
  "issues": ["anything you could not translate faithfully"]
}`

// BuildTranslationPrompt resolves the system prompt for a target language and
// builds the user payload from the article title and masked body.
func BuildTranslationPrompt(targetLangName, title, maskedBody string) (system, user string) {
	system = strings.ReplaceAll(TranslationSystemPrompt, "{{targetLang}}", targetLangName)

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\n", title)
	b.WriteString("Article body:\n\n")
	b.WriteString(maskedBody)
	return system, b.String()
}
