package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbg-research/SMM4H-2025/internal/config"
	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

func zolpidemVocabulary() domain.Vocabulary {
	return domain.Vocabulary{Kind: domain.PrimaryVocabulary, Entries: []domain.MedicationEntry{
		{Term: "Ambien", Canonical: "Zolpidem"},
		{Term: "Ambien CR", Canonical: "Zolpidem"},
	}}
}

func TestMedicationMatcher_Match(t *testing.T) {
	matcher, err := NewMedicationMatcher(zolpidemVocabulary())
	require.NoError(t, err)
	assert.Equal(t, domain.PrimaryVocabulary, matcher.Kind())

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"Overlapping terms both match", "she was on ambien but not Ambien CR", []string{"Ambien", "Ambien CR"}},
		{"Case insensitive", "AMBIEN 10mg qhs", []string{"Ambien"}},
		{"Multi-word term only", "switched to ambien cr.", []string{"Ambien", "Ambien CR"}},
		{"Word boundary required", "Ambiens and preambient noise", nil},
		{"Punctuation is a boundary", "(ambien)", []string{"Ambien"}},
		{"Hyphenated brand form", "takes ambien-cr nightly", []string{"Ambien"}},
		{"No mention", "no sleep aids", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := matcher.Match(tt.text)
			assert.Equal(t, tt.expected, match.Terms)
			assert.Equal(t, len(tt.expected) > 0, match.Found())
		})
	}
}

func TestMedicationMatcher_VocabularyOrder(t *testing.T) {
	matcher, err := NewMedicationMatcher(config.DefaultVocabularies().Secondary)
	require.NoError(t, err)

	match := matcher.Match("Xanax was stopped, now on trazodone and melatonin")
	assert.Equal(t, []string{"Melatonin", "Trazodone", "Xanax"}, match.Terms)
	assert.Equal(t, "Melatonin, Trazodone, Xanax", match.Evidence())
}

func TestMedicationMatcher_QuotesTerms(t *testing.T) {
	matcher, err := NewMedicationMatcher(domain.Vocabulary{Kind: domain.SecondaryVocabulary, Entries: []domain.MedicationEntry{
		{Term: "St. John's Wort", Canonical: "Hypericum"},
	}})
	require.NoError(t, err)

	assert.True(t, matcher.Match("tried st. john's wort").Found())
	assert.False(t, matcher.Match("tried stX john's wort").Found())
}

func TestNewMedicationMatcher_InvalidVocabulary(t *testing.T) {
	_, err := NewMedicationMatcher(domain.Vocabulary{Entries: []domain.MedicationEntry{
		{Term: "Ambien", Canonical: "Zolpidem"},
		{Term: "Ambien", Canonical: "Zolpidem"},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidVocabulary))
}
