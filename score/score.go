// Package score turns enrichment annotations into risk scores and cleans
// keyword lists.
package score

import "github.com/maastricht-university/chatrisk/model"

const neutralScore = 4.0

// Risk maps a sentiment label and emotion intensities to a risk score. The
// scale is unbounded; no clamping is applied. Unknown labels score as
// neutral.
func Risk(label string, e model.Emotions) float64 {
	switch label {
	case model.SentimentPositive:
		return 3.5 + e.Anger - e.Sadness + 1.5*e.Joy
	case model.SentimentNegative:
		return 5.0 - 4.0*(e.Anger+e.Sadness)
	default:
		return neutralScore
	}
}

// Annotation scores an annotation.
func Annotation(a model.Annotation) float64 {
	return Risk(a.SentimentLabel, a.Emotions)
}
