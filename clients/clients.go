package clients

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/maastricht-university/chatrisk/model"
)

var (
	// ErrServiceUnavailable covers transport failures, throttling and 5xx.
	ErrServiceUnavailable = errors.New("enrichment service unavailable")
	// ErrInvalidInput means the service rejected the request itself.
	ErrInvalidInput = errors.New("enrichment service rejected input")
)

// Analyzer is the enrichment capability the pipeline depends on.
type Analyzer interface {
	AnalyzeSentimentEmotion(ctx context.Context, text string) (model.Annotation, error)
	ExtractKeywords(ctx context.Context, text string) ([]model.Keyword, error)
}

const DefaultTimeout = 60 * time.Second

type HTTP struct{ c *http.Client }

func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}

// classifyStatus maps an HTTP status to a sentinel, or nil when the status
// fits neither class.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return ErrServiceUnavailable
	case code == http.StatusBadRequest,
		code == http.StatusRequestEntityTooLarge,
		code == http.StatusUnsupportedMediaType,
		code == http.StatusUnprocessableEntity:
		return ErrInvalidInput
	}
	return nil
}
