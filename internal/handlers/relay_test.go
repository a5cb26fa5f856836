package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/notebook-chat/internal/handlers"
	"github.com/MegaGrindStone/notebook-chat/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream is a fake chat completion endpoint that records the last request body it received.
type upstream struct {
	srv      *httptest.Server
	body     string
	received map[string]json.RawMessage
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()

	u := &upstream{body: body}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&u.received)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, u.body)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func newRelay(t *testing.T, endpoint string) handlers.Main {
	t.Helper()

	llm := services.NewOpenRouter(services.OpenRouterOptions{
		APIKey:   "test-key",
		Model:    services.OpenRouterDefaultModel,
		Endpoint: endpoint,
	}, discardLogger())
	return newMain(t, llm)
}

func TestRelayEndToEnd(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"hello"}}]}`)
	m := newRelay(t, up.srv.URL)

	w := postChat(m, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":"hello"}`, w.Body.String())
	assert.JSONEq(t, `[{"role":"user","content":"hi"}]`, string(up.received["messages"]))
	assert.JSONEq(t, `"`+services.OpenRouterDefaultModel+`"`, string(up.received["model"]))
}

func TestRelayPassesMessagesThrough(t *testing.T) {
	tests := []struct {
		name     string
		messages string
	}{
		{
			name:     "Content parts",
			messages: `[{"role":"user","content":[{"type":"text","text":"hi"}]}]`,
		},
		{
			name:     "Numeric content",
			messages: `[{"role":"user","content":5}]`,
		},
		{
			name:     "Extra field",
			messages: `[{"role":"user","content":"hi","name":"bob"}]`,
		},
		{
			name:     "Unknown role",
			messages: `[{"role":"narrator","content":"once"},{"role":"narrator","content":"twice"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream(t, http.StatusOK, `{"choices":[{"message":"ok"}]}`)
			m := newRelay(t, up.srv.URL)

			w := postChat(m, `{"messages":`+tt.messages+`}`)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"reply":"ok"}`, w.Body.String())
			require.NotNil(t, up.received)
			assert.JSONEq(t, tt.messages, string(up.received["messages"]))
		})
	}
}

func TestRelayDegradedReply(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `[]`, `{"choices":"x"}`, `{"choices":[{"message":{}}]}`} {
		t.Run(body, func(t *testing.T) {
			up := newUpstream(t, http.StatusOK, body)
			m := newRelay(t, up.srv.URL)

			w := postChat(m, `{"messages":[{"role":"user","content":"hi"}]}`)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, handlers.NoReplyMessage, decodeReply(t, w).Reply)
		})
	}
}

func TestRelayUpstreamUnreachable(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{}`)
	endpoint := up.srv.URL
	up.srv.Close()

	m := newRelay(t, endpoint)
	w := postChat(m, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, handlers.FailedReplyMessage, decodeReply(t, w).Reply)
}

func TestRelayUpstreamNotJSON(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `<html>oops</html>`)
	m := newRelay(t, up.srv.URL)

	w := postChat(m, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, handlers.FailedReplyMessage, decodeReply(t, w).Reply)
}
