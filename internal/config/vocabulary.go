package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// Vocabularies holds the primary and secondary medication tables.
type Vocabularies struct {
	Primary   domain.Vocabulary
	Secondary domain.Vocabulary
}

// vocabularyFile is the on-disk layout. Sequences keep declaration order,
// which a YAML mapping would not.
type vocabularyFile struct {
	Primary   []domain.MedicationEntry `yaml:"primary"`
	Secondary []domain.MedicationEntry `yaml:"secondary"`
}

// DefaultVocabularies returns the built-in medication tables.
func DefaultVocabularies() Vocabularies {
	return Vocabularies{
		Primary:   domain.Vocabulary{Kind: domain.PrimaryVocabulary, Entries: cloneEntries(primaryMedications)},
		Secondary: domain.Vocabulary{Kind: domain.SecondaryVocabulary, Entries: cloneEntries(secondaryMedications)},
	}
}

// LoadVocabularies reads medication tables from a YAML file. An empty path
// returns the built-in tables. A table missing from the file keeps its
// built-in default.
func LoadVocabularies(path string) (Vocabularies, error) {
	vocab := DefaultVocabularies()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabularies{}, fmt.Errorf("reading vocabulary file: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Vocabularies{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidVocabulary, path, err)
	}

	if file.Primary != nil {
		vocab.Primary.Entries = file.Primary
	}
	if file.Secondary != nil {
		vocab.Secondary.Entries = file.Secondary
	}

	for _, v := range []domain.Vocabulary{vocab.Primary, vocab.Secondary} {
		if err := v.Validate(); err != nil {
			return Vocabularies{}, fmt.Errorf("%w: %s vocabulary: %v", domain.ErrInvalidVocabulary, v.Kind, err)
		}
	}

	return vocab, nil
}

// MarshalYAML renders the tables in the same layout LoadVocabularies reads.
func (v Vocabularies) MarshalYAML() (interface{}, error) {
	return vocabularyFile{Primary: v.Primary.Entries, Secondary: v.Secondary.Entries}, nil
}

func cloneEntries(entries []domain.MedicationEntry) []domain.MedicationEntry {
	out := make([]domain.MedicationEntry, len(entries))
	copy(out, entries)
	return out
}

var primaryMedications = []domain.MedicationEntry{
	// Generic names
	{Term: "Estazolam", Canonical: "Estazolam"},
	{Term: "Eszopiclone", Canonical: "Eszopiclone"},
	{Term: "Flurazepam", Canonical: "Flurazepam"},
	{Term: "Lemborexant", Canonical: "Lemborexant"},
	{Term: "Quazepam", Canonical: "Quazepam"},
	{Term: "Ramelteon", Canonical: "Ramelteon"},
	{Term: "Suvorexant", Canonical: "Suvorexant"},
	{Term: "Temazepam", Canonical: "Temazepam"},
	{Term: "Triazolam", Canonical: "Triazolam"},
	{Term: "Zaleplon", Canonical: "Zaleplon"},
	{Term: "Zolpidem", Canonical: "Zolpidem"},

	// Brand names
	{Term: "Ambien", Canonical: "Zolpidem"},
	{Term: "Ambien CR", Canonical: "Zolpidem"},
	{Term: "Edluar", Canonical: "Zolpidem"},
	{Term: "Intermezzo", Canonical: "Zolpidem"},
	{Term: "Sonata", Canonical: "Zaleplon"},
	{Term: "Doral", Canonical: "Quazepam"},
	{Term: "Lunesta", Canonical: "Eszopiclone"},
	{Term: "Rozerem", Canonical: "Ramelteon"},
	{Term: "Belsomra", Canonical: "Suvorexant"},
	{Term: "Dayvigo", Canonical: "Lemborexant"},
	{Term: "Halcion", Canonical: "Triazolam"},
}

var secondaryMedications = []domain.MedicationEntry{
	// Generic names
	{Term: "Acamprosate", Canonical: "Acamprosate"},
	{Term: "Alprazolam", Canonical: "Alprazolam"},
	{Term: "Clonazepam", Canonical: "Clonazepam"},
	{Term: "Clonidine", Canonical: "Clonidine"},
	{Term: "Diazepam", Canonical: "Diazepam"},
	{Term: "Diphenhydramine", Canonical: "Diphenhydramine"},
	{Term: "Doxepin", Canonical: "Doxepin"},
	{Term: "Gabapentin", Canonical: "Gabapentin"},
	{Term: "Hydroxyzine", Canonical: "Hydroxyzine"},
	{Term: "Lorazepam", Canonical: "Lorazepam"},
	{Term: "Melatonin", Canonical: "Melatonin"},
	{Term: "Mirtazapine", Canonical: "Mirtazapine"},
	{Term: "Olanzapine", Canonical: "Olanzapine"},
	{Term: "Quetiapine", Canonical: "Quetiapine"},
	{Term: "Trazodone", Canonical: "Trazodone"},
	{Term: "Amitriptyline", Canonical: "Amitriptyline"},

	// Brand names
	{Term: "Ativan", Canonical: "Lorazepam"},
	{Term: "Benadryl", Canonical: "Diphenhydramine"},
	{Term: "Restoril", Canonical: "Temazepam"},
	{Term: "Seroquel", Canonical: "Quetiapine"},
	{Term: "Neurontin", Canonical: "Gabapentin"},
	{Term: "Klonopin", Canonical: "Clonazepam"},
	{Term: "Valium", Canonical: "Diazepam"},
	{Term: "Desyrel", Canonical: "Trazodone"},
	{Term: "Elavil", Canonical: "Amitriptyline"},
	{Term: "Remeron", Canonical: "Mirtazapine"},
	{Term: "Vistaril", Canonical: "Hydroxyzine"},
	{Term: "Atarax", Canonical: "Hydroxyzine"},
	{Term: "Xanax", Canonical: "Alprazolam"},

	// Common misspellings
	{Term: "Trazadone", Canonical: "Trazodone"},
	{Term: "Clonazapam", Canonical: "Clonazepam"},
	{Term: "Seraquil", Canonical: "Quetiapine"},
}
