package services_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/notebook-chat/internal/models"
	"github.com/MegaGrindStone/notebook-chat/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIComplete(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantReply string
		wantErr   bool
	}{
		{
			name:   "Reply",
			status: http.StatusOK,
			body: `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
				"choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`,
			wantReply: "hello",
		},
		{
			name:   "No choices",
			status: http.StatusOK,
			body:   `{"id":"chatcmpl-2","object":"chat.completion","choices":[]}`,
		},
		{
			name:    "API error",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"invalid api key","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAuth, gotTitle string
			var gotReq struct {
				Model    string           `json:"model"`
				Messages []wireMessage `json:"messages"`
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				gotTitle = r.Header.Get("X-Title")
				_ = json.NewDecoder(r.Body).Decode(&gotReq)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			o := services.NewOpenAI(services.OpenAIOptions{
				APIKey:  "test-key",
				Model:   "gpt-4o-mini",
				BaseURL: srv.URL + "/v1",
				Headers: map[string]string{"X-Title": "Notebook Chat"},
			}, discardLogger())

			reply, err := o.Complete(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})

			assert.Equal(t, "/v1/chat/completions", gotPath)
			assert.Equal(t, "Bearer test-key", gotAuth)
			assert.Equal(t, "Notebook Chat", gotTitle)
			assert.Equal(t, "gpt-4o-mini", gotReq.Model)
			assert.Equal(t, []wireMessage{{Role: "user", Content: "hi"}}, gotReq.Messages)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReply, reply)
		})
	}
}
