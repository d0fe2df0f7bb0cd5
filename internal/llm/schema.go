package llm

// JSONSchema is the subset of JSON Schema used for structured output
type JSONSchema struct {
	Type                 string                 `json:"type"`
	Description          string                 `json:"description,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// Schema names a structured-output shape. Anthropic receives it as a forced
// tool, OpenAI-compatible endpoints as a json_schema response format.
type Schema struct {
	Name        string
	Description string
	Parameters  *JSONSchema
}

// Object builds a closed object schema where every property is required.
func Object(props map[string]*JSONSchema, order ...string) *JSONSchema {
	closed := false
	return &JSONSchema{
		Type:                 "object",
		Properties:           props,
		Required:             order,
		AdditionalProperties: &closed,
	}
}
