package results

import (
	"time"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

func sampleResults() []domain.NoteResult {
	return []domain.NoteResult{
		{
			Note:   domain.ClinicalNote{NoteID: "n-2", Text: "Trouble falling asleep, takes Trazodone."},
			Record: domain.NewClassificationRecord(true, false, false, true),
			Evidence: domain.NoteEvidence{
				Definition1: "trouble falling asleep",
				RuleC:       "Trazodone",
			},
		},
		{
			Note:   domain.ClinicalNote{NoteID: "n-1", Text: "Ambien nightly."},
			Record: domain.NewClassificationRecord(false, false, true, false),
			Evidence: domain.NoteEvidence{
				RuleB: "Ambien",
			},
		},
		{
			Note:   domain.ClinicalNote{NoteID: "n-3", Text: "No complaints."},
			Record: domain.DefaultRecord(),
			Error:  "completion service failure: timeout",
		},
	}
}

func sampleRun() *Run {
	run := NewRun("test", "data/test.csv", "google/gemma-2-2b-it")
	run.StartedAt = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	run.Complete(sampleResults())
	run.CompletedAt = run.StartedAt.Add(time.Minute)
	return run
}
