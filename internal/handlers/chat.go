package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/notebook-chat/internal/models"
)

// ReplyPolicy turns the outcome of a completion into the payload sent back to the browser. Whatever the
// outcome, the returned Reply must be a displayable, non-empty string.
type ReplyPolicy interface {
	Result(reply string, err error) models.RelayResult
}

// CollapsedPolicy folds every failure into two buckets: an empty reply is a soft failure shown as an
// assistant message with status 200, and any error is a hard failure with status 500. The cause is
// never exposed to the caller.
type CollapsedPolicy struct{}

type chatRequest struct {
	Messages []models.Message `json:"messages"`
}

const (
	// NoReplyMessage is returned when the upstream answered without any reply text.
	NoReplyMessage = "⚠️ No reply from model. Please try again later."
	// FailedReplyMessage is returned when the upstream could not be reached or understood.
	FailedReplyMessage = "⚠️ Failed to connect to upstream."
	// InvalidRequestMessage is returned when the browser sent a body that is not a conversation.
	InvalidRequestMessage = "⚠️ Invalid request body."
	// MethodNotAllowedMessage is returned for any method other than POST.
	MethodNotAllowedMessage = "⚠️ Method not allowed."

	maxBodyBytes = 1 << 20
)

// Result implements ReplyPolicy.
func (CollapsedPolicy) Result(reply string, err error) models.RelayResult {
	switch {
	case err != nil:
		return models.RelayResult{Reply: FailedReplyMessage, Status: http.StatusInternalServerError}
	case reply == "":
		return models.RelayResult{Reply: NoReplyMessage, Status: http.StatusOK}
	default:
		return models.RelayResult{Reply: reply, Status: http.StatusOK}
	}
}

// HandleChat relays a conversation to the LLM. It expects a JSON body of the form {"messages": [...]}
// and always answers with {"reply": "..."}, whatever happened upstream. The messages are forwarded as
// received; roles and ordering are not validated.
//
// Every call reaches the LLM; nothing is cached between calls, so identical conversations may get
// different replies.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	logger := m.logger.With(slog.String("requestID", RequestID(r.Context())))

	if r.Method != http.MethodPost {
		logger.Error("Method not allowed", slog.String("method", r.Method))
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, models.RelayResult{Reply: MethodNotAllowedMessage})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Error("Failed to decode chat request", slog.String(errLoggerKey, err.Error()))
		writeJSON(w, http.StatusBadRequest, models.RelayResult{Reply: InvalidRequestMessage})
		return
	}
	if req.Messages == nil {
		req.Messages = []models.Message{}
	}

	reply, err := m.llm.Complete(r.Context(), req.Messages)
	if err != nil {
		logger.Error("Failed to complete conversation",
			slog.Int("messages", len(req.Messages)),
			slog.String(errLoggerKey, err.Error()))
	} else if reply == "" {
		logger.Warn("Model returned no reply", slog.Int("messages", len(req.Messages)))
	}

	res := m.policy.Result(reply, err)
	writeJSON(w, res.Status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
