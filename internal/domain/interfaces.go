package domain

import (
	"context"
)

// CompletionService returns the model's completion for a fully rendered prompt.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NoteClassifier classifies a single clinical note.
type NoteClassifier interface {
	Classify(ctx context.Context, note ClinicalNote) (*NoteResult, error)
}

// Classifier classifies notes either by calling the completion service or
// against a completion the caller already has.
type Classifier interface {
	NoteClassifier
	ClassifyCompletion(note ClinicalNote, completion string) NoteResult
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetCompletionConfig() *CompletionConfig
	GetPipelineConfig() *PipelineConfig
	GetServerConfig() *ServerConfig
	GetStorageConfig() *StorageConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
