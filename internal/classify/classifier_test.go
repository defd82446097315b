// internal/classify/classifier_test.go
package classify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"talent-platform/internal/common/database"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/criteria"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatClient struct {
	content string
	err     error
	calls   int
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func testInput() Input {
	return Input{
		Title:       "Best Paper Award",
		Description: "Conference award certificate",
		Text:        "Awarded for outstanding contribution to the field.",
	}
}

func TestClassify_ValidCategory(t *testing.T) {
	primary := &stubChatClient{
		content: `{"category": "awards", "confidence": "high", "score_impact": 8, "rationale": "national award"}`,
	}
	c := New(primary, "test-model", logger.NewTestLogger(t))

	res := c.Classify(context.Background(), testInput())

	assert.Equal(t, criteria.Awards, res.Category)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.Equal(t, 8, res.ScoreImpact)
	assert.Equal(t, "national award", res.Rationale)
}

func TestClassify_UnknownCategorySubstitutesFallback(t *testing.T) {
	primary := &stubChatClient{
		content: `{"category": "nobel_laureate", "confidence": "high", "score_impact": 20, "rationale": "clearly exceptional"}`,
	}
	c := New(primary, "test-model", logger.NewTestLogger(t))

	res := c.Classify(context.Background(), testInput())

	assert.Equal(t, criteria.FallbackCategory, res.Category)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, 1, res.ScoreImpact)
}

func TestClassify_ScoreImpactBoundedByCategory(t *testing.T) {
	tests := []struct {
		name     string
		impact   int
		expected int
	}{
		{"above category max", 99, 10}, // membership caps at 10
		{"below one", -3, 1},
		{"in range", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &stubChatClient{
				content: fmt.Sprintf(`{"category": "membership", "confidence": "medium", "score_impact": %d, "rationale": "x"}`, tt.impact),
			}
			c := New(primary, "test-model", logger.NewTestLogger(t))

			res := c.Classify(context.Background(), testInput())
			assert.Equal(t, tt.expected, res.ScoreImpact)
		})
	}
}

func TestClassify_FallbackProviderOnPrimaryFailure(t *testing.T) {
	primary := &stubChatClient{err: fmt.Errorf("rate limited")}
	secondary := &stubChatClient{
		content: `{"category": "judging", "confidence": "medium", "score_impact": 5, "rationale": "peer review"}`,
	}
	c := New(primary, "test-model", logger.NewTestLogger(t),
		WithFallback(secondary, "fallback-model"))

	res := c.Classify(context.Background(), testInput())

	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, secondary.calls)
	assert.Equal(t, criteria.Judging, res.Category)
}

func TestClassify_DefaultWhenAllProvidersFail(t *testing.T) {
	primary := &stubChatClient{err: fmt.Errorf("unavailable")}
	secondary := &stubChatClient{err: fmt.Errorf("also unavailable")}
	c := New(primary, "test-model", logger.NewTestLogger(t),
		WithFallback(secondary, "fallback-model"))

	res := c.Classify(context.Background(), testInput())

	assert.Equal(t, criteria.FallbackCategory, res.Category)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, 1, res.ScoreImpact)
}

func TestClassify_UnparseableResponseFallsThrough(t *testing.T) {
	primary := &stubChatClient{content: "I think this is probably an award?"}
	c := New(primary, "test-model", logger.NewTestLogger(t))

	res := c.Classify(context.Background(), testInput())

	assert.Equal(t, criteria.FallbackCategory, res.Category)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}

func TestClassify_CachedResultSkipsProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	primary := &stubChatClient{
		content: `{"category": "judging", "confidence": "medium", "score_impact": 4, "rationale": "reviewer"}`,
	}
	c := New(primary, "test-model", logger.NewTestLogger(t),
		WithCache(cache, time.Minute))

	first := c.Classify(context.Background(), testInput())
	second := c.Classify(context.Background(), testInput())

	assert.Equal(t, 1, primary.calls, "second classification should come from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, criteria.Judging, second.Category)
}

func TestClassify_InvalidConfidenceNormalizedToLow(t *testing.T) {
	primary := &stubChatClient{
		content: `{"category": "awards", "confidence": "extreme", "score_impact": 5, "rationale": "x"}`,
	}
	c := New(primary, "test-model", logger.NewTestLogger(t))

	res := c.Classify(context.Background(), testInput())

	assert.Equal(t, criteria.Awards, res.Category)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}
