package handlers

import (
	"context"
	"html/template"
	"log/slog"

	notebookchat "github.com/MegaGrindStone/notebook-chat"
	"github.com/MegaGrindStone/notebook-chat/internal/models"
)

// LLM represents a large language model that completes a conversation. It returns the assistant's reply
// for the given messages. An empty reply with a nil error means the model answered without text.
type LLM interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}

// Renderer converts message markdown into an HTML fragment for display.
type Renderer interface {
	Render(source string) (string, error)
}

// Main handles the core functionality of the chat application: serving the notebook page, relaying
// conversations to the LLM and rendering replies.
type Main struct {
	templates *template.Template

	llm      LLM
	renderer Renderer
	policy   ReplyPolicy
	title    string

	logger *slog.Logger
}

const errLoggerKey = "err"

// NewMain creates a new Main instance with the provided LLM and Renderer implementations. It parses the
// HTML templates from the embedded filesystem and uses CollapsedPolicy to shape relay results.
func NewMain(llm LLM, renderer Renderer, title string, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		notebookchat.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	return Main{
		templates: tmpl,
		llm:       llm,
		renderer:  renderer,
		policy:    CollapsedPolicy{},
		title:     title,
		logger:    logger.With(slog.String("module", "main")),
	}, nil
}

// WithPolicy returns a copy of m that shapes relay results with p.
func (m Main) WithPolicy(p ReplyPolicy) Main {
	m.policy = p
	return m
}
