package clients

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/maastricht-university/chatrisk/model"
)

// Retrying retries calls that failed with ErrServiceUnavailable using
// exponential backoff. Other errors return immediately.
type Retrying struct {
	next    Analyzer
	retries uint64
	base    time.Duration
	max     time.Duration
}

func NewRetrying(next Analyzer, retries int, base, max time.Duration) *Retrying {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 20 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Retrying{next: next, retries: uint64(retries), base: base, max: max}
}

func (r *Retrying) do(ctx context.Context, op func(ctx context.Context) error) error {
	b := retry.NewExponential(r.base)
	b = retry.WithCappedDuration(r.max, b)
	b = retry.WithMaxRetries(r.retries, b)
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := op(ctx)
		if errors.Is(err, ErrServiceUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (r *Retrying) AnalyzeSentimentEmotion(ctx context.Context, text string) (model.Annotation, error) {
	var out model.Annotation
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.AnalyzeSentimentEmotion(ctx, text)
		return err
	})
	return out, err
}

func (r *Retrying) ExtractKeywords(ctx context.Context, text string) ([]model.Keyword, error) {
	var out []model.Keyword
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.ExtractKeywords(ctx, text)
		return err
	})
	return out, err
}
