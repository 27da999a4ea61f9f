package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/lox/floatchat/internal/httputil"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are an assistant for an ARGO float data explorer focused on the Indian Ocean. " +
	"Answer briefly in plain text. If you do not know a figure, say so rather than inventing one."

// LLM answers unmatched queries with an OpenAI chat completion.
type LLM struct {
	client   openai.Client
	model    string
	logger   *zap.Logger
	maxRetry time.Duration
}

// NewLLM creates a responder. An empty apiKey is an error; callers that have
// no key should pass a nil Responder to NewAssistant instead.
func NewLLM(apiKey, model string, logger *zap.Logger) (*LLM, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httputil.NewClient()),
		option.WithMaxRetries(0),
	)

	return &LLM{
		client:   client,
		model:    model,
		logger:   logger,
		maxRetry: 20 * time.Second,
	}, nil
}

// Respond implements Responder.
func (l *LLM) Respond(ctx context.Context, query string) (string, error) {
	var text string
	operation := func() error {
		resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(l.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(query),
			},
		})
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("chat completion: %w", err))
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("chat completion: no choices returned"))
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = l.maxRetry
	notify := func(err error, wait time.Duration) {
		l.logger.Debug("chat: retrying completion", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return "", err
	}
	return text, nil
}

func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}
