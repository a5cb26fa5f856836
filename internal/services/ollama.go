package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/MegaGrindStone/notebook-chat/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama provides an implementation of the LLM interface for interacting with Ollama's language models.
// It manages the connection to an Ollama server instance and requests non-streamed chat completions.
type Ollama struct {
	host         string
	model        string
	systemPrompt string

	client *api.Client

	logger *slog.Logger
}

// NewOllama creates a new Ollama instance with the specified host URL and model name. The host
// parameter should be a valid URL pointing to an Ollama server.
func NewOllama(host, model, systemPrompt string, timeout time.Duration, logger *slog.Logger) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("error parsing ollama host: %w", err)
	}

	return Ollama{
		host:         host,
		model:        model,
		systemPrompt: systemPrompt,
		client:       api.NewClient(u, &http.Client{Timeout: timeout}),
		logger:       logger.With(slog.String("module", "ollama")),
	}, nil
}

// Complete sends the conversation to the Ollama model with streaming disabled, so the callback fires
// once with the full reply.
func (o Ollama) Complete(ctx context.Context, messages []models.Message) (string, error) {
	msgs := models.WithSystemPrompt(o.systemPrompt, messages)
	apiMsgs := make([]api.Message, len(msgs))
	for i, msg := range msgs {
		apiMsgs[i] = api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	f := false
	req := api.ChatRequest{
		Model:    o.model,
		Messages: apiMsgs,
		Stream:   &f,
	}

	var reply string
	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		reply += res.Message.Content
		return nil
	}); err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	o.logger.Debug("Response", slog.String("host", o.host), slog.Int("length", len(reply)))

	return reply, nil
}
