package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subagents/internal/config"
	"subagents/internal/errors"
)

func completionServer(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"down"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
}

func TestLMStudio_Complete(t *testing.T) {
	var body map[string]any
	srv := completionServer(t, http.StatusOK, `{"keywords":["foo"]}`, &body)
	defer srv.Close()

	c, err := NewLMStudio(config.ProviderConfig{
		Kind: config.ProviderLMStudio, BaseURL: srv.URL + "/v1", Model: "local", APIKey: "secret",
	})
	require.NoError(t, err)

	got, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "q"},
	}, 0, 128)
	require.NoError(t, err)
	assert.Equal(t, `{"keywords":["foo"]}`, got)
	assert.Equal(t, "local", body["model"])
	assert.EqualValues(t, 128, body["max_tokens"])
	assert.Len(t, body["messages"], 2)
}

func TestLMStudio_HTTPError(t *testing.T) {
	srv := completionServer(t, http.StatusServiceUnavailable, "", nil)
	defer srv.Close()

	c, err := NewLMStudio(config.ProviderConfig{BaseURL: srv.URL + "/v1", Model: "m", APIKey: "secret"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, 0, 16)
	assert.Equal(t, errors.ProviderUnavailable, errors.CodeOf(err))
}

func TestNewLMStudio_Validation(t *testing.T) {
	_, err := NewLMStudio(config.ProviderConfig{Model: "m"})
	assert.True(t, errors.IsInputError(err))
	_, err = NewLMStudio(config.ProviderConfig{BaseURL: "http://x"})
	assert.True(t, errors.IsInputError(err))
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.ProviderConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = FromConfig(config.ProviderConfig{Kind: config.ProviderLMStudio, BaseURL: "http://localhost:1234/v1", Model: "m"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
