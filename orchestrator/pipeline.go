package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/chatrisk/clump"
	"github.com/maastricht-university/chatrisk/model"
	"github.com/maastricht-university/chatrisk/score"
	"github.com/maastricht-university/chatrisk/source"
	"github.com/maastricht-university/chatrisk/textnorm"
)

type Pipeline struct {
	norm    *textnorm.Normalizer
	clumper *clump.Clumper
	nlu     Enricher
	stop    score.StopWords
	log     logrus.FieldLogger
}

func NewPipeline(norm *textnorm.Normalizer, clumper *clump.Clumper, nlu Enricher, stop score.StopWords, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{norm: norm, clumper: clumper, nlu: nlu, stop: stop, log: log}
}

// Clumps normalizes and clumps every conversation, then orders all pairs by
// time. No remote calls are made.
func (p *Pipeline) Clumps(exp source.Export) ([]model.ClumpPair, error) {
	var pairs []model.ClumpPair
	for _, c := range exp.Conversations {
		conv, err := model.NewConversation(c.Participant, c.Messages)
		if err != nil {
			return nil, err
		}
		ps, err := p.clumper.Pairs(p.normalize(conv), exp.TargetUser)
		if err != nil {
			return nil, err
		}
		p.log.WithFields(logrus.Fields{
			"participant": conv.Participant,
			"messages":    len(conv.Messages),
			"pairs":       len(ps),
		}).Debug("clumped conversation")
		pairs = append(pairs, ps...)
	}
	sortPairs(pairs)
	return pairs, nil
}

// Score enriches each pair and builds its record. The first failed call
// aborts the run.
func (p *Pipeline) Score(ctx context.Context, pairs []model.ClumpPair) ([]model.ScoredRecord, error) {
	recs := make([]model.ScoredRecord, 0, len(pairs))
	for i, pair := range pairs {
		ann, err := p.nlu.AnalyzeSentimentEmotion(ctx, pair.User.Text)
		if err != nil {
			return nil, fmt.Errorf("pair %d sentiment: %w", i, err)
		}
		kws, err := p.nlu.ExtractKeywords(ctx, pair.All.Text)
		if err != nil {
			return nil, fmt.Errorf("pair %d keywords: %w", i, err)
		}
		rec := model.ScoredRecord{
			Time:     pair.All.Time,
			Speaker:  pair.All.Speaker,
			Score:    score.Annotation(ann),
			Keywords: score.FilterKeywords(kws, p.stop),
		}
		p.log.WithFields(logrus.Fields{
			"time":      rec.Time,
			"speaker":   rec.Speaker,
			"sentiment": ann.SentimentLabel,
			"score":     rec.Score,
		}).Debug("scored window")
		recs = append(recs, rec)
	}
	return recs, nil
}

// Run clumps, scores and writes the export to outPath.
func (p *Pipeline) Run(ctx context.Context, exp source.Export, outPath string) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.WithField("run_id", runID)
	log.WithFields(logrus.Fields{
		"target":        exp.TargetUser,
		"conversations": len(exp.Conversations),
		"window":        p.clumper.Window(),
	}).Info("run started")

	pairs, err := p.Clumps(exp)
	if err != nil {
		return nil, err
	}
	log.WithField("pairs", len(pairs)).Info("clumping done")

	recs, err := p.Score(ctx, pairs)
	if err != nil {
		return nil, err
	}
	if err := persist(outPath, recs); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"records": len(recs), "output": outPath}).Info("run finished")

	return &Result{
		RunID:         runID,
		Conversations: len(exp.Conversations),
		Pairs:         len(pairs),
		Records:       recs,
		OutputPath:    outPath,
	}, nil
}
