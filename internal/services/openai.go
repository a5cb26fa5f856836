package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MegaGrindStone/notebook-chat/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides an implementation of the LLM interface for any OpenAI compatible chat completion API,
// OpenRouter included when BaseURL points at it.
type OpenAI struct {
	model        string
	systemPrompt string

	client *goopenai.Client

	logger *slog.Logger
}

// OpenAIOptions configures an OpenAI instance. Headers are attached to every outgoing request.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	SystemPrompt string
	BaseURL      string
	Headers      map[string]string
	Timeout      time.Duration
}

type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

// NewOpenAI creates a new OpenAI instance with the specified options.
func NewOpenAI(opts OpenAIOptions, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{
		Timeout: opts.Timeout,
		Transport: headerTransport{
			headers: opts.Headers,
			base:    http.DefaultTransport,
		},
	}

	return OpenAI{
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "openai")),
	}
}

func openAIMessages(messages []models.Message) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		msgs[i] = goopenai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return msgs
}

// Complete is a wrapper around the OpenAI chat completion API. A response without choices yields an
// empty reply and a nil error.
func (o OpenAI) Complete(ctx context.Context, messages []models.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: openAIMessages(models.WithSystemPrompt(o.systemPrompt, messages)),
	}

	reqJSON, err := json.Marshal(req)
	if err == nil {
		o.logger.Debug("Request", slog.String("req", string(reqJSON)))
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	o.logger.Debug("Response",
		slog.String("id", resp.ID),
		slog.Int("choices", len(resp.Choices)),
	)

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
