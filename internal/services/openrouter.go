package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MegaGrindStone/notebook-chat/internal/models"
)

// OpenRouter provides an implementation of the LLM interface for interacting with OpenRouter's chat
// completion endpoint. It talks to the API directly so it can tolerate the loose response shapes some
// free-tier models return.
type OpenRouter struct {
	apiKey       string
	model        string
	systemPrompt string
	endpoint     string
	referer      string
	title        string

	client *http.Client

	logger *slog.Logger
}

// OpenRouterOptions configures an OpenRouter instance. Endpoint, Referer and Title fall back to the
// package defaults when empty.
type OpenRouterOptions struct {
	APIKey       string
	Model        string
	SystemPrompt string
	Endpoint     string
	Referer      string
	Title        string
	Timeout      time.Duration
}

type openRouterChatRequest struct {
	Model    string           `json:"model"`
	Messages []models.Message `json:"messages"`
}

const (
	// OpenRouterAPIEndpoint is the chat completion endpoint used when none is configured.
	OpenRouterAPIEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	// OpenRouterDefaultModel is the model used when none is configured.
	OpenRouterDefaultModel = "deepseek/deepseek-r1:free"

	openRouterDefaultReferer = "http://localhost:3000"
	openRouterDefaultTitle   = "Notebook Chat"
)

// NewOpenRouter creates a new OpenRouter instance from the given options.
func NewOpenRouter(opts OpenRouterOptions, logger *slog.Logger) OpenRouter {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = OpenRouterAPIEndpoint
	}
	referer := opts.Referer
	if referer == "" {
		referer = openRouterDefaultReferer
	}
	title := opts.Title
	if title == "" {
		title = openRouterDefaultTitle
	}

	return OpenRouter{
		apiKey:       opts.APIKey,
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		endpoint:     endpoint,
		referer:      referer,
		title:        title,
		client:       &http.Client{Timeout: opts.Timeout},
		logger:       logger.With(slog.String("module", "openrouter")),
	}
}

// Complete sends the whole conversation to OpenRouter and returns the assistant's reply. An empty reply
// with a nil error means the upstream answered but produced no usable text. Any transport, status or
// decoding failure is returned as an error.
func (o OpenRouter) Complete(ctx context.Context, messages []models.Message) (string, error) {
	if messages == nil {
		messages = []models.Message{}
	}
	reqBody := openRouterChatRequest{
		Model:    o.model,
		Messages: models.WithSystemPrompt(o.systemPrompt, messages),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	o.logger.Debug("Request Body", slog.String("body", string(jsonBody)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("HTTP-Referer", o.referer)
	req.Header.Set("X-Title", o.title)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	o.logger.Debug("Response Body",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	// Only a body that is not JSON at all is a failure. Any JSON of an unexpected shape is walked
	// loosely and yields an empty reply.
	var res any
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	return replyText(firstChoiceMessage(res)), nil
}

// firstChoiceMessage returns choices[0].message of a decoded response, or nil when any step of the
// path is missing or of the wrong type.
func firstChoiceMessage(res any) any {
	envelope, ok := res.(map[string]any)
	if !ok {
		return nil
	}
	choices, ok := envelope["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return nil
	}
	return choice["message"]
}

// replyText extracts the reply from a choice message. Some models put the reply string directly in
// the message, so the string form wins; otherwise the content field of the object form is used.
// Anything else yields an empty reply.
func replyText(msg any) string {
	switch m := msg.(type) {
	case string:
		return m
	case map[string]any:
		content, _ := m["content"].(string)
		return content
	default:
		return ""
	}
}
