package prompts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTemplate = `role: You build workflows.
rules:
  - Use a start node.
  - Use an end node.
notes: keep it short
`

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// countingStore counts Load calls on the wrapped store
type countingStore struct {
	inner Store
	calls int
}

func (c *countingStore) Load(ctx context.Context, name string) (*Template, error) {
	c.calls++
	return c.inner.Load(ctx, name)
}

func TestParse(t *testing.T) {
	tmpl, err := Parse("sample", []byte(sampleTemplate))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tmpl.Role != "You build workflows." {
		t.Errorf("Role = %q", tmpl.Role)
	}
	if tmpl.Rules != "- Use a start node.\n- Use an end node." {
		t.Errorf("Rules = %q", tmpl.Rules)
	}
	if v, ok := tmpl.Field("notes"); !ok || v != "keep it short" {
		t.Errorf("Field(notes) = %q, %v", v, ok)
	}
	if _, ok := tmpl.Field("missing"); ok {
		t.Error("Field(missing) should not be found")
	}

	text := tmpl.Text()
	roleIdx := strings.Index(text, "role:")
	rulesIdx := strings.Index(text, "rules:")
	notesIdx := strings.Index(text, "notes:")
	if roleIdx < 0 || rulesIdx < roleIdx || notesIdx < rulesIdx {
		t.Errorf("Text() should keep key order, got:\n%s", text)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "invalid yaml", content: "role: [unclosed", want: ErrTemplateParse},
		{name: "scalar document", content: "just text", want: ErrTemplateParse},
		{name: "empty document", content: "", want: ErrTemplateParse},
		{name: "nested rules", content: "rules:\n  - a: b\n", want: ErrTemplateParse},
		{name: "no role or rules", content: "notes: hi\n", want: ErrTemplateParse},
		{name: "no role or rules is empty", content: "notes: hi\n", want: ErrEmptyTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("x", []byte(tt.content))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFileStore_Load(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeTemplate(t, second, "workflow_generator.yml", sampleTemplate)

	store := NewFileStore(first, second)
	tmpl, err := store.Load(context.Background(), DefaultTemplate)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tmpl.Source != filepath.Join(second, "workflow_generator.yml") {
		t.Errorf("Source = %q", tmpl.Source)
	}
	if tmpl.Name != DefaultTemplate {
		t.Errorf("Name = %q", tmpl.Name)
	}

	// The earlier directory wins once it has the file
	writeTemplate(t, first, "workflow_generator.yaml", "role: first\n")
	tmpl, err = store.Load(context.Background(), DefaultTemplate)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tmpl.Role != "first" {
		t.Errorf("Role = %q, want the first directory's template", tmpl.Role)
	}
}

func TestFileStore_Errors(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "broken.yaml", "role: [")
	writeTemplate(t, dir, "empty.yaml", "notes: hi\n")

	store := NewFileStore(dir)
	if _, err := store.Load(context.Background(), "absent"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Load(absent) error = %v, want ErrTemplateNotFound", err)
	}
	if _, err := store.Load(context.Background(), "broken"); !errors.Is(err, ErrTemplateParse) {
		t.Errorf("Load(broken) error = %v, want ErrTemplateParse", err)
	}
	if _, err := store.Load(context.Background(), "empty"); !errors.Is(err, ErrTemplateParse) || errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Load(empty) error = %v, want ErrTemplateParse", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Load(ctx, "broken"); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() with canceled context error = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := writeTemplate(t, dir, "custom.yaml", sampleTemplate)

	tmpl, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if tmpl.Name != "custom" || tmpl.Source != p {
		t.Errorf("LoadFile() = %q from %q", tmpl.Name, tmpl.Source)
	}

	if _, err := LoadFile(filepath.Join(dir, "nope.yaml")); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadFile(missing) error = %v", err)
	}
}

func TestEmbeddedStore(t *testing.T) {
	tmpl, err := EmbeddedStore{}.Load(context.Background(), DefaultTemplate)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tmpl.Rules == "" || tmpl.Role == "" {
		t.Error("embedded template should carry role and rules")
	}
	if !strings.Contains(string(tmpl.Rules), "```yaml") {
		t.Error("embedded rules should ask for a fenced yaml block")
	}

	if _, err := (EmbeddedStore{}).Load(context.Background(), "nope"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Load(nope) error = %v", err)
	}
}

func TestChainStore(t *testing.T) {
	dir := t.TempDir()
	chain := ChainStore{NewFileStore(dir), EmbeddedStore{}}

	tmpl, err := chain.Load(context.Background(), DefaultTemplate)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !strings.HasPrefix(tmpl.Source, "embedded:") {
		t.Errorf("Source = %q, want embedded fallback", tmpl.Source)
	}

	// A malformed file must not silently fall back
	writeTemplate(t, dir, "workflow_generator.yaml", "- a\n- b\n")
	if _, err := chain.Load(context.Background(), DefaultTemplate); !errors.Is(err, ErrTemplateParse) {
		t.Errorf("Load() error = %v, want ErrTemplateParse", err)
	}

	if _, err := chain.Load(context.Background(), "unknown"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Load(unknown) error = %v", err)
	}
}

func TestCachedStore(t *testing.T) {
	inner := &countingStore{inner: EmbeddedStore{}}
	store := NewCachedStore(inner)

	for i := 0; i < 3; i++ {
		if _, err := store.Load(context.Background(), DefaultTemplate); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner Load called %d times, want 1", inner.calls)
	}

	// Failures are not cached
	for i := 0; i < 2; i++ {
		if _, err := store.Load(context.Background(), "missing"); err == nil {
			t.Fatal("Load(missing) should fail")
		}
	}
	if inner.calls != 3 {
		t.Errorf("inner Load called %d times, want 3", inner.calls)
	}
}

func TestStaticStore(t *testing.T) {
	tmpl, _ := Parse("x", []byte(sampleTemplate))
	got, err := StaticStore{Template: tmpl}.Load(context.Background(), "anything")
	if err != nil || got != tmpl {
		t.Errorf("Load() = %v, %v", got, err)
	}
	if _, err := (StaticStore{}).Load(context.Background(), "x"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("empty StaticStore error = %v", err)
	}
}

func TestGenerationPrompt(t *testing.T) {
	tmpl, _ := Parse("x", []byte(sampleTemplate))

	first := GenerationPrompt(tmpl, "recipe article workflow", "")
	if !strings.Contains(first, "recipe article workflow") || !strings.Contains(first, "Use a start node.") {
		t.Errorf("first prompt missing query or rules:\n%s", first)
	}
	if strings.Contains(first, feedbackHeader) {
		t.Error("first prompt must not contain a feedback block")
	}

	reason := "  missing step 2\n(no end node)"
	retry := GenerationPrompt(tmpl, "recipe article workflow", reason)
	if !strings.Contains(retry, feedbackHeader) {
		t.Error("retry prompt should contain the feedback header")
	}
	if !strings.Contains(retry, reason) {
		t.Errorf("retry prompt should quote feedback verbatim:\n%s", retry)
	}
	if !strings.HasPrefix(retry, first) {
		t.Error("retry prompt should extend the first-attempt prompt")
	}
}

func TestContinuationQuery(t *testing.T) {
	if got := ContinuationQuery("q", ""); got != "q" {
		t.Errorf("ContinuationQuery(q, \"\") = %q", got)
	}
	got := ContinuationQuery("q", "partial")
	if got != "q\nExisting answer so far:\npartial" {
		t.Errorf("ContinuationQuery() = %q", got)
	}
}

func TestCheckPrompt(t *testing.T) {
	tmpl, _ := Parse("x", []byte(sampleTemplate))
	candidate := "```yaml\napp: {}\n```"

	got := CheckPrompt(tmpl, candidate)
	if !strings.Contains(got, candidate) {
		t.Error("check prompt should embed the candidate verbatim")
	}
	if !strings.Contains(got, "Use an end node.") {
		t.Error("check prompt should embed the rules")
	}
}
