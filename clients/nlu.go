package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/maastricht-university/chatrisk/model"
)

// Feature selects what an analyze call returns.
type Feature uint8

const (
	FeatureSentiment Feature = 1 << iota
	FeatureEmotion
	FeatureKeywords
)

const (
	DefaultVersion      = "2017-02-27"
	DefaultLanguage     = "en"
	DefaultKeywordLimit = 10
)

// NLUConfig addresses a Watson-compatible natural language understanding
// endpoint. APIKey wins over Username/Password when both are set.
type NLUConfig struct {
	URL          string
	Username     string
	Password     string
	APIKey       string
	Version      string
	Language     string
	KeywordLimit int
}

// --- Analyze (/v1/analyze) ---
type AnalyzeReq struct {
	Text     string      `json:"text"`
	Language string      `json:"language,omitempty"`
	Features FeaturesReq `json:"features"`
}

type FeaturesReq struct {
	Sentiment *struct{}    `json:"sentiment,omitempty"`
	Emotion   *struct{}    `json:"emotion,omitempty"`
	Keywords  *KeywordsReq `json:"keywords,omitempty"`
}

type KeywordsReq struct {
	Limit int `json:"limit,omitempty"`
}

type EmotionScores struct {
	Sadness float64 `json:"sadness"`
	Joy     float64 `json:"joy"`
	Fear    float64 `json:"fear"`
	Disgust float64 `json:"disgust"`
	Anger   float64 `json:"anger"`
}

type KeywordResult struct {
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}

type AnalyzeResp struct {
	Language  string `json:"language"`
	Sentiment *struct {
		Document struct {
			Score float64 `json:"score"`
			Label string  `json:"label"`
		} `json:"document"`
	} `json:"sentiment,omitempty"`
	Emotion *struct {
		Document struct {
			Emotion EmotionScores `json:"emotion"`
		} `json:"document"`
	} `json:"emotion,omitempty"`
	Keywords []KeywordResult `json:"keywords,omitempty"`
}

// NLU talks to a Watson-compatible analyze endpoint.
type NLU struct {
	http *HTTP
	cfg  NLUConfig
}

func NewNLU(h *HTTP, cfg NLUConfig) *NLU {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.KeywordLimit <= 0 {
		cfg.KeywordLimit = DefaultKeywordLimit
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &NLU{http: h, cfg: cfg}
}

func (n *NLU) Analyze(ctx context.Context, text string, f Feature) (*AnalyzeResp, error) {
	body := AnalyzeReq{Text: text, Language: n.cfg.Language}
	if f&FeatureSentiment != 0 {
		body.Features.Sentiment = &struct{}{}
	}
	if f&FeatureEmotion != 0 {
		body.Features.Emotion = &struct{}{}
	}
	if f&FeatureKeywords != 0 {
		body.Features.Keywords = &KeywordsReq{Limit: n.cfg.KeywordLimit}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("nlu encode: %w", err)
	}

	endpoint := n.cfg.URL + "/v1/analyze?version=" + url.QueryEscape(n.cfg.Version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if n.cfg.APIKey != "" {
		req.SetBasicAuth("apikey", n.cfg.APIKey)
	} else {
		req.SetBasicAuth(n.cfg.Username, n.cfg.Password)
	}

	resp, err := n.http.c.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("nlu: %w", ctx.Err())
		}
		return nil, fmt.Errorf("nlu: %v: %w", err, ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if kind := classifyStatus(resp.StatusCode); kind != nil {
			return nil, fmt.Errorf("nlu %s: %s: %w", resp.Status, strings.TrimSpace(string(msg)), kind)
		}
		return nil, fmt.Errorf("nlu %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out AnalyzeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("nlu decode: %w", err)
	}
	return &out, nil
}

// AnalyzeSentimentEmotion requests sentiment and emotion for text. A missing
// sentiment block yields an empty label, which scores as neutral.
func (n *NLU) AnalyzeSentimentEmotion(ctx context.Context, text string) (model.Annotation, error) {
	resp, err := n.Analyze(ctx, text, FeatureSentiment|FeatureEmotion)
	if err != nil {
		return model.Annotation{}, err
	}
	var a model.Annotation
	if resp.Sentiment != nil {
		a.SentimentLabel = resp.Sentiment.Document.Label
		a.SentimentScore = resp.Sentiment.Document.Score
	}
	if resp.Emotion != nil {
		e := resp.Emotion.Document.Emotion
		a.Emotions = model.Emotions{Sadness: e.Sadness, Fear: e.Fear, Anger: e.Anger, Joy: e.Joy}
	}
	return a, nil
}

func (n *NLU) ExtractKeywords(ctx context.Context, text string) ([]model.Keyword, error) {
	resp, err := n.Analyze(ctx, text, FeatureKeywords)
	if err != nil {
		return nil, err
	}
	out := make([]model.Keyword, 0, len(resp.Keywords))
	for _, k := range resp.Keywords {
		out = append(out, model.Keyword{Term: k.Text, Relevance: k.Relevance})
	}
	return out, nil
}
