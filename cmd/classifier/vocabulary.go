package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rbg-research/SMM4H-2025/internal/config"
)

// vocabularyCmd prints the effective medication tables
var vocabularyCmd = &cobra.Command{
	Use:   "vocabulary",
	Short: "Print the primary and secondary medication tables as YAML",
	Long: `Prints the medication tables Rules B and C match against, in match order.
The output can be edited and passed back with --vocabulary or
pipeline.vocabulary_file.`,
	Args: cobra.NoArgs,
	RunE: runVocabulary,
}

func init() {
	vocabularyCmd.Flags().StringVar(&vocabularyFile, "vocabulary", "", "YAML medication vocabulary file")
}

func runVocabulary(cmd *cobra.Command, args []string) error {
	manager, err := loadConfig(map[string]interface{}{"pipeline.vocabulary_file": vocabularyFile})
	if err != nil {
		return err
	}

	vocab, err := config.LoadVocabularies(manager.GetPipelineConfig().VocabularyFile)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(vocab); err != nil {
		return err
	}
	return enc.Close()
}
