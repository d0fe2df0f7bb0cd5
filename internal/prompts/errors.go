package prompts

import "errors"

var (
	// ErrTemplateNotFound is returned when no store has the requested template
	ErrTemplateNotFound = errors.New("prompt template not found")

	// ErrTemplateParse is returned when a template is not valid YAML or not a mapping
	ErrTemplateParse = errors.New("prompt template malformed")

	// ErrEmptyTemplate marks a template with neither role nor rules text. It is
	// always returned together with ErrTemplateParse.
	ErrEmptyTemplate = errors.New("prompt template missing 'role' and 'rules'")
)
