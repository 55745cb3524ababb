package service

import (
	"fmt"
	"regexp"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// MedicationMatcher finds vocabulary terms mentioned in note text.
type MedicationMatcher struct {
	kind     domain.VocabularyKind
	terms    []string
	patterns []*regexp.Regexp
}

// NewMedicationMatcher compiles a case-insensitive whole-word pattern for
// every term in the vocabulary.
func NewMedicationMatcher(vocab domain.Vocabulary) (*MedicationMatcher, error) {
	if err := vocab.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidVocabulary, err)
	}

	m := &MedicationMatcher{
		kind:     vocab.Kind,
		terms:    make([]string, 0, len(vocab.Entries)),
		patterns: make([]*regexp.Regexp, 0, len(vocab.Entries)),
	}
	for _, entry := range vocab.Entries {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(entry.Term) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("%w: term %q: %v", domain.ErrInvalidVocabulary, entry.Term, err)
		}
		m.terms = append(m.terms, entry.Term)
		m.patterns = append(m.patterns, pattern)
	}
	return m, nil
}

// Kind returns the vocabulary this matcher was built from.
func (m *MedicationMatcher) Kind() domain.VocabularyKind {
	return m.kind
}

// Match returns the matched terms in vocabulary order. Each term is tested
// on its own, so "Ambien" and "Ambien CR" can both match.
func (m *MedicationMatcher) Match(text string) domain.MedicationMatch {
	match := domain.MedicationMatch{Kind: m.kind}
	for i, pattern := range m.patterns {
		if pattern.MatchString(text) {
			match.Terms = append(match.Terms, m.terms[i])
		}
	}
	return match
}
