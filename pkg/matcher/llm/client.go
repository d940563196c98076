// Package llm wraps the large-language-model calls shared by the program
// extractor (C1) and the granular scorer (C5): a structured-output
// completion call against Anthropic's Messages API, guarded by a circuit
// breaker and a per-call timeout.
package llm

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	sharederrors "github.com/opportumatch/matcher/pkg/shared/errors"
)

// CompletionRequest is a single structured-output LLM call: fixed
// temperature and seed for reproducibility, a system prompt enumerating
// the schema contract, and a user prompt carrying the candidate-specific
// content.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	Seed         int64
	MaxTokens    int64
	Timeout      time.Duration
}

// Client is the seam the extractor and scorer depend on, satisfied by
// AnthropicClient in production and a fake in tests.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// AnthropicClient calls Anthropic's Messages API, wrapped in a circuit
// breaker so a run of failures fails fast instead of piling up blocked
// goroutines against a degraded provider.
type AnthropicClient struct {
	client  anthropic.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewAnthropicClient constructs an AnthropicClient for apiKey.
func NewAnthropicClient(apiKey string, logger *logrus.Logger) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "anthropic-messages",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &AnthropicClient{client: client, breaker: breaker, logger: logger}
}

// Complete issues req against Anthropic's Messages API and returns the
// concatenated text of the reply's text content blocks. The request sends
// the model, max tokens, temperature, system prompt and user prompt;
// req.Seed is not sent.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		message, err := c.client.Messages.New(callCtx, anthropic.MessageNewParams{
			Model:       anthropic.Model(req.Model),
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(req.Temperature),
			System: []anthropic.TextBlockParam{
				{Text: req.SystemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
			},
		})
		if err != nil {
			return "", err
		}
		return extractText(message), nil
	})
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Warn("anthropic messages call failed")
		}
		return "", sharederrors.Wrapf(err, "anthropic completion call failed for model %s", req.Model)
	}

	return result.(string), nil
}

func extractText(message *anthropic.Message) string {
	if message == nil {
		return ""
	}
	out := ""
	for _, block := range message.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}
