// Package mdfile implements reading and writing of Markdown content files
// with YAML frontmatter.
//
// The frontmatter is kept as a yaml.Node tree so that field order and
// formatting survive a read-modify-write cycle. The body is kept verbatim:
// content hashing and the extract/restore round-trip both depend on the body
// bytes never being rewritten by this package.
package mdfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Frontmatter field names used by the pipeline.
const (
	FieldCanonicalID        = "canonicalId"
	FieldLanguage           = "language"
	FieldTitle              = "title"
	FieldTranslationOf      = "translationOf"
	FieldSourceLanguage     = "sourceLanguage"
	FieldTags               = "tags"
	FieldTranslationHistory = "translationHistory"
	FieldAITLDR             = "ai_tldr"
	FieldAITextScore        = "ai_textscore"
	FieldAIMetadata         = "ai_metadata"
)

// frontmatterBlock matches a YAML frontmatter block at the start of the file.
var frontmatterBlock = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n`)

// Document is a parsed Markdown content file.
type Document struct {
	// Body is everything after the closing frontmatter delimiter, verbatim.
	Body string

	// mapping is the frontmatter mapping node (nil when the file has none
	// and no field has been set yet).
	mapping        *yaml.Node
	hadFrontmatter bool
}

// ParseFile reads and parses a Markdown content file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses raw Markdown bytes into a Document.
func Parse(data []byte) (*Document, error) {
	text := string(data)
	doc := &Document{Body: text}

	m := frontmatterBlock.FindStringSubmatchIndex(text)
	if m == nil {
		return doc, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text[m[2]:m[3]]), &node); err != nil {
		return nil, fmt.Errorf("invalid frontmatter YAML: %w", err)
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter is not a mapping")
	}

	doc.mapping = node.Content[0]
	doc.hadFrontmatter = true
	doc.Body = text[m[1]:]
	return doc, nil
}

// ensureMapping returns the frontmatter mapping node, creating it if needed.
func (d *Document) ensureMapping() *yaml.Node {
	if d.mapping == nil {
		d.mapping = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	return d.mapping
}

// findValue returns the value node for key, or nil.
func (d *Document) findValue(key string) *yaml.Node {
	if d.mapping == nil {
		return nil
	}
	for i := 0; i+1 < len(d.mapping.Content); i += 2 {
		if d.mapping.Content[i].Value == key {
			return d.mapping.Content[i+1]
		}
	}
	return nil
}

// Field returns the scalar frontmatter value for key.
func (d *Document) Field(key string) (string, bool) {
	v := d.findValue(key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.Value, true
}

// SetField sets a scalar string field, appending it if absent.
func (d *Document) SetField(key, value string) {
	d.setNode(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
}

// SetIntField sets a scalar integer field.
func (d *Document) SetIntField(key string, value int) {
	d.setNode(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(value)})
}

func (d *Document) setNode(key string, value *yaml.Node) {
	m := d.ensureMapping()
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value)
}

// StringList returns a sequence field as a string slice.
func (d *Document) StringList(key string) []string {
	v := d.findValue(key)
	if v == nil || v.Kind != yaml.SequenceNode {
		return nil
	}
	var out []string
	for _, item := range v.Content {
		if item.Kind == yaml.ScalarNode {
			out = append(out, item.Value)
		}
	}
	return out
}

// SetStringList sets a sequence field from a string slice.
func (d *Document) SetStringList(key string, values []string) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
	}
	d.setNode(key, seq)
}

// Typed accessors for the pipeline's well-known fields.

func (d *Document) CanonicalID() string    { v, _ := d.Field(FieldCanonicalID); return v }
func (d *Document) Language() string       { v, _ := d.Field(FieldLanguage); return v }
func (d *Document) Title() string          { v, _ := d.Field(FieldTitle); return v }
func (d *Document) TranslationOf() string  { v, _ := d.Field(FieldTranslationOf); return v }
func (d *Document) SourceLanguage() string { v, _ := d.Field(FieldSourceLanguage); return v }
func (d *Document) Tags() []string         { return d.StringList(FieldTags) }

// AppendHistory appends one entry to the translationHistory sequence.
func (d *Document) AppendHistory(language, model, date string) {
	entry := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	pairs := [][2]string{{"language", language}, {"model", model}, {"date", date}}
	for _, p := range pairs {
		entry.Content = append(entry.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p[0]},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p[1]})
	}
	if v := d.findValue(FieldTranslationHistory); v != nil && v.Kind == yaml.SequenceNode {
		v.Content = append(v.Content, entry)
		return
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{entry}}
	d.setNode(FieldTranslationHistory, seq)
}

// SetTokenUsage records AI token usage under ai_metadata.tokenUsage.
func (d *Document) SetTokenUsage(model string, inputTokens, outputTokens int) {
	usage := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	addScalar := func(key, tag, val string) {
		usage.Content = append(usage.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: val})
	}
	addScalar("model", "!!str", model)
	addScalar("inputTokens", "!!int", strconv.Itoa(inputTokens))
	addScalar("outputTokens", "!!int", strconv.Itoa(outputTokens))

	meta := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "tokenUsage"},
		usage,
	}}
	d.setNode(FieldAIMetadata, meta)
}

// Marshal serialises the document back to Markdown bytes.
// The body is emitted verbatim.
func (d *Document) Marshal() ([]byte, error) {
	if d.mapping == nil || len(d.mapping.Content) == 0 {
		return []byte(d.Body), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.mapping); err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("---\n")
	out.Write(buf.Bytes())
	out.WriteString("---\n")
	if !d.hadFrontmatter && d.Body != "" {
		// Frontmatter freshly added: separate it from the body.
		out.WriteString("\n")
	}
	out.WriteString(d.Body)
	return out.Bytes(), nil
}

// WriteFile serialises the document and writes it atomically.
func (d *Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return WriteAtomic(path, data)
}

// WriteAtomic writes data to path via temp file, fsync, and rename.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, ".polyglot-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	success = true
	return nil
}
