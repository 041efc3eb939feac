package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultPrompt is the transcription instruction sent with each image.
const DefaultPrompt = "What is the text clearly visible in this image? Only return the transcribed text."

// OpenAIRecognizer transcribes images with any OpenAI-compatible chat
// completions endpoint that accepts image_url content parts.
type OpenAIRecognizer struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	model   string
	prompt  string
}

// NewOpenAIRecognizer creates a recognizer for baseURL (e.g.
// "https://api.openai.com/v1").
func NewOpenAIRecognizer(baseURL, apiKey, model string, timeout time.Duration) *OpenAIRecognizer {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &OpenAIRecognizer{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		prompt:  DefaultPrompt,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Recognize sends the image as a data URL and returns the raw answer.
func (r *OpenAIRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read captcha image: %w", err)
	}

	body := chatRequest{
		Model: r.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: r.prompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img),
				}},
			},
		}},
		Temperature: 0,
	}

	var out chatResponse
	var apiErr chatErrorResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(r.apiKey).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(r.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("recognition request: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return "", fmt.Errorf("recognition service returned %d: %s", resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("recognition service returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
