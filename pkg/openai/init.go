package openai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"clipforge/log"
	apperrors "clipforge/pkg/errors"
)

const defaultTimeout = 120 * time.Second

type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Proxy   string
	// Timeout bounds a single completion call.
	Timeout time.Duration
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	transport := &http.Transport{}
	if opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			log.GetLogger().Warn("[LLM] Ignoring invalid proxy", zap.String("proxy", opts.Proxy), zap.Error(err))
		}
	}
	cfg.HTTPClient = &http.Client{Transport: transport}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Client{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// ChatCompletion sends one system+user exchange and returns the reply text.
func (c *Client) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", apperrors.New(apperrors.CodeLLMFailed, "empty completion")
	}

	log.GetLogger().Debug("[LLM] Completion finished",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeLLMTimeout, "completion timed out", err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return apperrors.Wrap(apperrors.CodeRateLimited, "completion rate limited", err)
		case http.StatusUnauthorized:
			return apperrors.Wrap(apperrors.CodeUnauthorized, "completion unauthorized", err)
		}
	}
	return apperrors.Wrap(apperrors.CodeLLMFailed, "completion failed", err)
}
