package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/maastricht-university/chatrisk/model"
)

const DefaultOpenAIModel = "gpt-4o-mini"

const sentimentEmotionPrompt = `You annotate chat transcripts written by one person.
Classify the overall sentiment as positive, neutral or negative and give its magnitude in [-1,1].
Rate sadness, fear, anger and joy each in [0,1].
Respond with JSON only.`

const keywordsPrompt = `You extract keywords from a chat transcript.
Return up to %d salient keywords or short phrases as they appear in the text, each with a relevance in [0,1], most relevant first.
Respond with JSON only.`

type sentimentEmotionResponse struct {
	SentimentLabel string  `json:"sentiment_label" jsonschema:"enum=positive,enum=neutral,enum=negative"`
	SentimentScore float64 `json:"sentiment_score"`
	Sadness        float64 `json:"sadness"`
	Fear           float64 `json:"fear"`
	Anger          float64 `json:"anger"`
	Joy            float64 `json:"joy"`
}

type keywordsResponse struct {
	Keywords []KeywordResult `json:"keywords"`
}

var (
	sentimentEmotionSchema = generateSchema[sentimentEmotionResponse]()
	keywordsSchema         = generateSchema[keywordsResponse]()
)

// OpenAI annotates text with a chat model using strict structured output.
type OpenAI struct {
	client       *openai.Client
	model        string
	keywordLimit int
}

func NewOpenAI(apiKey, model string, keywordLimit int, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if keywordLimit <= 0 {
		keywordLimit = DefaultKeywordLimit
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAI{client: &client, model: model, keywordLimit: keywordLimit}
}

func (o *OpenAI) AnalyzeSentimentEmotion(ctx context.Context, text string) (model.Annotation, error) {
	var out sentimentEmotionResponse
	if err := o.call(ctx, "SentimentEmotion", sentimentEmotionSchema, sentimentEmotionPrompt, text, &out); err != nil {
		return model.Annotation{}, err
	}
	return model.Annotation{
		SentimentLabel: strings.ToLower(strings.TrimSpace(out.SentimentLabel)),
		SentimentScore: out.SentimentScore,
		Emotions: model.Emotions{
			Sadness: out.Sadness,
			Fear:    out.Fear,
			Anger:   out.Anger,
			Joy:     out.Joy,
		},
	}, nil
}

func (o *OpenAI) ExtractKeywords(ctx context.Context, text string) ([]model.Keyword, error) {
	var out keywordsResponse
	prompt := fmt.Sprintf(keywordsPrompt, o.keywordLimit)
	if err := o.call(ctx, "Keywords", keywordsSchema, prompt, text, &out); err != nil {
		return nil, err
	}
	kws := make([]model.Keyword, 0, len(out.Keywords))
	for _, k := range out.Keywords {
		if len(kws) == o.keywordLimit {
			break
		}
		kws = append(kws, model.Keyword{Term: strings.TrimSpace(k.Text), Relevance: k.Relevance})
	}
	return kws, nil
}

func (o *OpenAI) call(ctx context.Context, name string, schema map[string]any, instructions, text string, v any) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("openai %s: empty text: %w", name, ErrInvalidInput)
	}
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(1000),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		},
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return classifyOpenAIError(ctx, name, err)
	}
	if err := decodeModelJSON(resp.OutputText(), v); err != nil {
		return fmt.Errorf("openai %s decode: %w", name, err)
	}
	return nil
}

func classifyOpenAIError(ctx context.Context, name string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("openai %s: %w", name, ctx.Err())
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if kind := classifyStatus(apiErr.StatusCode); kind != nil {
			return fmt.Errorf("openai %s: %v: %w", name, err, kind)
		}
		return fmt.Errorf("openai %s: %w", name, err)
	}
	return fmt.Errorf("openai %s: %v: %w", name, err, ErrServiceUnavailable)
}

// decodeModelJSON tolerates leading or trailing chatter around the JSON object.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON (len=%d): %w", end+1-start, err)
	}
	return nil
}

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	strictObjects(m)
	return m
}

// strictObjects marks every object closed with all properties required, as
// strict structured output demands.
func strictObjects(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				strictObjects(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		strictObjects(items)
	}
}
