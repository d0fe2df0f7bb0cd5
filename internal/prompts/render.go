package prompts

import (
	"fmt"
	"strings"
)

// GeneratorRole is the fixed system prompt for generation calls
const GeneratorRole = "You are an expert at generating Dify workflow definitions."

// CheckerRole is the fixed system prompt for checking calls
const CheckerRole = "You review generated Dify workflow definitions against written rules."

const (
	feedbackHeader     = "The previous generation was rejected for the following reasons. Fix them:"
	existingAnswerMark = "Existing answer so far:"
)

// section renders one part of a prompt; empty output is skipped
type section func() string

func build(sections ...section) string {
	var parts []string
	for _, s := range sections {
		if text := s(); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// GenerationPrompt renders the user prompt for a generation call: template,
// request and, only when feedback is non-empty, the rejection block.
func GenerationPrompt(t *Template, query, feedback string) string {
	sections := []section{
		t.Text,
		func() string { return query },
	}
	if feedback != "" {
		sections = append(sections, func() string {
			return feedbackHeader + "\n" + feedback
		})
	}
	return build(sections...)
}

// ContinuationQuery extends query with the text produced so far, used to
// resume a generation that hit the output limit.
func ContinuationQuery(query, soFar string) string {
	if soFar == "" {
		return query
	}
	return query + "\n" + existingAnswerMark + "\n" + soFar
}

// CheckPrompt renders the checking prompt embedding the template and the
// candidate verbatim.
func CheckPrompt(t *Template, candidate string) string {
	return fmt.Sprintf(`Check whether the generated workflow follows the rules written in the prompt below.
Answer judge=false if there is any problem and judge=true if there is none.
Explain the reason for your decision in reason.

Prompt:
%s

Answer:
%s`, t.Text(), candidate)
}
