package service

import (
	_ "embed"
	"strings"
)

// noteTextPlaceholder marks where the note text is substituted.
const noteTextPlaceholder = "{text}"

//go:embed prompts/insomnia.tmpl
var promptTemplate string

// RenderPrompt substitutes the note text into the annotation prompt. The
// template asks the model for two labelled sections that ResponseParser
// reads back.
func RenderPrompt(noteText string) string {
	return strings.Replace(promptTemplate, noteTextPlaceholder, noteText, 1)
}
