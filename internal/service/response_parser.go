package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// Section headers the prompt asks the model to emit.
const (
	SleepDifficultyHeader   = "Sleep Difficulty Phrases:"
	DaytimeImpairmentHeader = "Daytime Impairment Phrases:"
)

const (
	endOfTurnMarker = "<end_of_turn>"
	unknownToken    = "unknown"
	// Sections at most this many characters that mention "unknown" are
	// the model's "nothing found" answer.
	unknownMaxLength = 10
)

// modelTurnPattern matches everything up to and including the last echoed
// model-turn marker. The trailing "l" may be repeated or missing.
var modelTurnPattern = regexp.MustCompile(`(?s)^.*<start_of_turn>model*`)

// ResponseParser extracts the two evidence sections from a completion.
type ResponseParser struct{}

// NewResponseParser creates a new response parser
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// Parse never fails: a missing header or an "unknown" answer yields an
// empty section.
func (p *ResponseParser) Parse(completion string) domain.ExtractedEvidence {
	response := CleanCompletion(completion)

	var evidence domain.ExtractedEvidence
	if section, ok := sectionAfter(response, SleepDifficultyHeader); ok {
		if idx := strings.Index(section, DaytimeImpairmentHeader); idx >= 0 {
			section = section[:idx]
		}
		evidence.SleepDifficulty = normalizeSection(section)
	}
	if section, ok := sectionAfter(response, DaytimeImpairmentHeader); ok {
		evidence.DaytimeImpairment = normalizeSection(section)
	}
	return evidence
}

// CleanCompletion drops an echoed prompt and anything after the model's
// end-of-turn marker.
func CleanCompletion(completion string) string {
	response := strings.TrimSpace(modelTurnPattern.ReplaceAllString(completion, ""))
	if idx := strings.Index(response, endOfTurnMarker); idx >= 0 {
		response = strings.TrimSpace(response[:idx])
	}
	return response
}

// sectionAfter returns the text between the first occurrence of header and
// its next occurrence, or the end of the text.
func sectionAfter(text, header string) (string, bool) {
	idx := strings.Index(text, header)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(header):]
	if next := strings.Index(rest, header); next >= 0 {
		rest = rest[:next]
	}
	return rest, true
}

func normalizeSection(section string) string {
	section = strings.TrimSpace(section)
	if strings.Contains(strings.ToLower(section), unknownToken) && utf8.RuneCountInString(section) <= unknownMaxLength {
		return ""
	}
	return section
}
