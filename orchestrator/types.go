package orchestrator

import (
	"context"

	"github.com/maastricht-university/chatrisk/model"
)

// Enricher annotates clump text. Calls are issued one at a time.
type Enricher interface {
	AnalyzeSentimentEmotion(ctx context.Context, text string) (model.Annotation, error)
	ExtractKeywords(ctx context.Context, text string) ([]model.Keyword, error)
}

// Result summarizes one run.
type Result struct {
	RunID         string
	Conversations int
	Pairs         int
	Records       []model.ScoredRecord
	OutputPath    string
}
