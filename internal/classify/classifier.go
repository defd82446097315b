// internal/classify/classifier.go
// Package classify wraps the external document classification service. The
// classifier is advisory: its result seeds a document's category and score
// impact, both of which an administrator may override before verification.
package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"talent-platform/internal/common/database"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/common/metrics"
	"talent-platform/internal/criteria"

	openai "github.com/sashabaranov/go-openai"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Input is the document text handed to the classifier.
type Input struct {
	Text        string `json:"text"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result is the classification contract: the category is always one of the
// eight fixed criteria keys by the time it leaves this package.
type Result struct {
	Category    string `json:"category"`
	Confidence  string `json:"confidence"`
	ScoreImpact int    `json:"scoreImpact"`
	Rationale   string `json:"rationale"`
}

// ChatClient is the slice of the OpenAI-compatible client the classifier
// uses, extracted for mocking.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Classifier struct {
	primary       ChatClient
	fallback      ChatClient
	model         string
	fallbackModel string
	cache         *database.RedisClient
	cacheTTL      time.Duration
	logger        logger.Logger
}

type Option func(*Classifier)

// WithFallback configures a secondary provider tried when the primary fails.
func WithFallback(client ChatClient, model string) Option {
	return func(c *Classifier) {
		c.fallback = client
		c.fallbackModel = model
	}
}

// WithCache enables caching of classification results keyed by content hash.
func WithCache(cache *database.RedisClient, ttl time.Duration) Option {
	return func(c *Classifier) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func New(primary ChatClient, model string, log logger.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		primary: primary,
		model:   model,
		logger:  log.WithFields(map[string]interface{}{"component": "classify"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const systemPrompt = `You classify O-1 visa evidence documents into exactly one of these categories:
awards, membership, published_material, judging, original_contribution, scholarly_articles, critical_employment, high_remuneration.
Respond with JSON only: {"category": "...", "confidence": "high|medium|low", "score_impact": <integer 1-20>, "rationale": "..."}`

// Classify returns a classification for the document. It never fails the
// request outright: if both providers are unavailable or return garbage, the
// default low-confidence fallback category is substituted and the condition
// is logged.
func (c *Classifier) Classify(ctx context.Context, input Input) Result {
	cacheKey := c.cacheKey(input)
	if c.cache != nil {
		if val, err := c.cache.Get(ctx, cacheKey); err == nil {
			var res Result
			if err := json.Unmarshal([]byte(val), &res); err == nil {
				return res
			}
		}
	}

	res, err := c.call(ctx, c.primary, c.model, input)
	if err != nil {
		metrics.ClassifierCallsTotal.WithLabelValues("primary", "error").Inc()
		c.logger.Warn("primary classifier failed", map[string]interface{}{"error": err})

		if c.fallback != nil {
			res, err = c.call(ctx, c.fallback, c.fallbackModel, input)
			if err != nil {
				metrics.ClassifierCallsTotal.WithLabelValues("fallback", "error").Inc()
				c.logger.Warn("fallback classifier failed", map[string]interface{}{"error": err})
			} else {
				metrics.ClassifierCallsTotal.WithLabelValues("fallback", "ok").Inc()
			}
		}
	} else {
		metrics.ClassifierCallsTotal.WithLabelValues("primary", "ok").Inc()
	}

	if err != nil {
		return DefaultResult("classifier unavailable")
	}

	res = c.sanitize(res)

	if c.cache != nil {
		if data, marshalErr := json.Marshal(res); marshalErr == nil {
			if cacheErr := c.cache.Set(ctx, cacheKey, data, c.cacheTTL); cacheErr != nil {
				c.logger.Warn("failed to cache classification", map[string]interface{}{"error": cacheErr})
			}
		}
	}

	return res
}

// DefaultResult is the low-confidence fallback used when classification is
// unavailable or returns an unrecognized category.
func DefaultResult(rationale string) Result {
	return Result{
		Category:    criteria.FallbackCategory,
		Confidence:  ConfidenceLow,
		ScoreImpact: 1,
		Rationale:   rationale,
	}
}

func (c *Classifier) call(ctx context.Context, client ChatClient, model string, input Input) (Result, error) {
	userContent := fmt.Sprintf("Title: %s\nDescription: %s\n\n%s", input.Title, input.Description, input.Text)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Result{}, err
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("classifier returned no choices")
	}

	var raw struct {
		Category    string `json:"category"`
		Confidence  string `json:"confidence"`
		ScoreImpact int    `json:"score_impact"`
		Rationale   string `json:"rationale"`
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Result{}, fmt.Errorf("unparseable classifier response: %w", err)
	}

	return Result{
		Category:    raw.Category,
		Confidence:  raw.Confidence,
		ScoreImpact: raw.ScoreImpact,
		Rationale:   raw.Rationale,
	}, nil
}

// sanitize enforces the contract: category always one of the fixed eight,
// confidence one of the fixed levels, score impact bounded by the category.
func (c *Classifier) sanitize(res Result) Result {
	if !criteria.Valid(res.Category) {
		c.logger.Warn("classifier returned unknown category, substituting fallback", map[string]interface{}{
			"category": res.Category,
		})
		return DefaultResult(fmt.Sprintf("unrecognized category %q from upstream", res.Category))
	}

	switch res.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		res.Confidence = ConfidenceLow
	}

	def, _ := criteria.Lookup(res.Category)
	if res.ScoreImpact < 1 {
		res.ScoreImpact = 1
	}
	if res.ScoreImpact > def.MaxScore {
		res.ScoreImpact = def.MaxScore
	}

	return res
}

func (c *Classifier) cacheKey(input Input) string {
	h := sha256.New()
	h.Write([]byte(input.Title))
	h.Write([]byte{0})
	h.Write([]byte(input.Description))
	h.Write([]byte{0})
	h.Write([]byte(input.Text))
	return "classify:" + hex.EncodeToString(h.Sum(nil))
}

// NewOpenAIClient builds the primary provider client.
func NewOpenAIClient(apiKey string, timeout time.Duration) ChatClient {
	return NewCompatibleClient(apiKey, "", timeout)
}

// NewCompatibleClient builds a provider client for any OpenAI-compatible
// endpoint, used for the secondary provider.
func NewCompatibleClient(apiKey, baseURL string, timeout time.Duration) ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}
