// Package prompts loads the YAML prompt templates that drive generation and
// checking, and renders them into model prompts.
package prompts

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is a parsed prompt template. Role and Rules are the fields the
// renderers rely on; the whole mapping is kept so extra keys reach the model too.
type Template struct {
	// Name is the identifier the template was loaded under
	Name string `yaml:"-"`

	// Role describes who the model should act as
	Role TextBlock `yaml:"role"`

	// Rules lists the constraints a generated workflow must satisfy
	Rules TextBlock `yaml:"rules"`

	// Source is where the template came from (file path or "embedded")
	Source string `yaml:"-"`

	doc yaml.Node
}

// TextBlock accepts either a scalar string or a sequence of strings.
// Sequences are rendered as a dash list.
type TextBlock string

// UnmarshalYAML implements yaml.Unmarshaler
func (b *TextBlock) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*b = TextBlock(strings.TrimSpace(node.Value))
		return nil
	case yaml.SequenceNode:
		lines := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: list items must be strings", item.Line)
			}
			lines = append(lines, "- "+strings.TrimSpace(item.Value))
		}
		*b = TextBlock(strings.Join(lines, "\n"))
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// Parse decodes a template document. The document must be a mapping with a
// non-empty role or rules field.
func Parse(name string, data []byte) (*Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateParse, name, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", ErrTemplateParse, name)
	}

	t := &Template{Name: name}
	if err := doc.Decode(t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateParse, name, err)
	}
	if t.Role == "" && t.Rules == "" {
		return nil, fmt.Errorf("%w: %w: %s", ErrTemplateParse, ErrEmptyTemplate, name)
	}
	t.doc = doc
	return t, nil
}

// Field returns the scalar value stored under key, if any.
func (t *Template) Field(key string) (string, bool) {
	if len(t.doc.Content) == 0 {
		return "", false
	}
	m := t.doc.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key && m.Content[i+1].Kind == yaml.ScalarNode {
			return m.Content[i+1].Value, true
		}
	}
	return "", false
}

// Text renders the full template back to YAML in its original key order.
func (t *Template) Text() string {
	if len(t.doc.Content) == 0 {
		return joinNonEmpty("\n\n", string(t.Role), string(t.Rules))
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&t.doc); err != nil {
		return joinNonEmpty("\n\n", string(t.Role), string(t.Rules))
	}
	_ = enc.Close()
	return strings.TrimSpace(buf.String())
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
