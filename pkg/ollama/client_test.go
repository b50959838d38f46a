package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("localhost")
	assert.Error(t, err)

	c, err := NewClient("http://localhost:11434/api/chat")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestDetectObjectsAgainstServer(t *testing.T) {
	var gotModel string
	var gotImages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Images []string `json:"images"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		if len(req.Messages) > 0 {
			gotImages = len(req.Messages[0].Images)
		}

		reply := map[string]any{
			"model": req.Model,
			"message": map[string]any{
				"role":    "assistant",
				"content": `{"objects":[{"label":"person","confidence":0.8,"box":[0,0,1,0.5]}],"description":"one person"}`,
			},
			"done": true,
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	img := base64.StdEncoding.EncodeToString([]byte("not really a jpeg"))
	result, err := c.DetectObjects(context.Background(), "qwen2.5vl:7b", "find objects", img)
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5vl:7b", gotModel)
	assert.Equal(t, 1, gotImages)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "person", result.Objects[0].Label)
}

func TestDetectObjectsRejectsBadImage(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)
	_, err = c.DetectObjects(context.Background(), "m", "p", "%%%")
	assert.Error(t, err)
}
