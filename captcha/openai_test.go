package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenAIRecognizer(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" 7Gh2 "}}]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "c.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nrest"), 0o644))

	r := NewOpenAIRecognizer(srv.URL+"/v1/", "k", "vision-model", 5*time.Second)
	text, err := r.Recognize(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, " 7Gh2 ", text)

	require.Equal(t, "vision-model", got.Model)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	require.Equal(t, DefaultPrompt, got.Messages[0].Content[0].Text)
	require.True(t, strings.HasPrefix(got.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,"))
}

func TestOpenAIRecognizerAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "c.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))

	_, err := NewOpenAIRecognizer(srv.URL, "k", "m", 5*time.Second).Recognize(context.Background(), path)
	require.ErrorContains(t, err, "429")
	require.ErrorContains(t, err, "quota exceeded")
}

func TestOpenAIRecognizerMissingImage(t *testing.T) {
	_, err := NewOpenAIRecognizer("http://127.0.0.1:0", "k", "m", time.Second).
		Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}
