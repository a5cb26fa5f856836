package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type homePageData struct {
	Title string
}

type renderRequest struct {
	Content string `json:"content"`
}

type renderResponse struct {
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// HandleHome renders the notebook page. The conversation itself lives in the browser, so the page is
// always rendered empty.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", homePageData{Title: m.title}); err != nil {
		m.logger.Error("Failed to execute home template", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// HandleRender converts the markdown in a {"content": "..."} body into an HTML fragment returned as
// {"html": "..."}.
func (m Main) HandleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, renderResponse{Error: "method not allowed"})
		return
	}

	var req renderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		m.logger.Error("Failed to decode render request", slog.String(errLoggerKey, err.Error()))
		writeJSON(w, http.StatusBadRequest, renderResponse{Error: "invalid request body"})
		return
	}

	html, err := m.renderer.Render(req.Content)
	if err != nil {
		m.logger.Error("Failed to render content", slog.String(errLoggerKey, err.Error()))
		writeJSON(w, http.StatusInternalServerError, renderResponse{Error: "failed to render content"})
		return
	}

	writeJSON(w, http.StatusOK, renderResponse{HTML: html})
}
