package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"carecount/internal"
	"carecount/internal/config"
)

// ChatClient speaks the OpenAI-style chat/completions dialect that both
// supported vision providers expose.
type ChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewChatClient builds a client for the provider selected in config
// (nebius or featherless).
func NewChatClient(cfg config.Config) (*ChatClient, error) {
	var baseURL, apiKey string
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "nebius":
		baseURL, apiKey = cfg.NebiusBaseURL, cfg.NebiusAPIKey
		if err := cfg.Require("NEBIUS_API_KEY", apiKey); err != nil {
			return nil, err
		}
	case "featherless":
		baseURL, apiKey = cfg.FeatherlessBaseURL, cfg.FeatherlessAPIKey
		if err := cfg.Require("FEATHERLESS_API_KEY", apiKey); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return &ChatClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RecognizerTimeout) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.RecognizerRateRPS),
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one image question and returns the model's text reply.
func (c *ChatClient) Complete(ctx context.Context, userPrompt string, image []byte) (string, error) {
	b64 := base64.StdEncoding.EncodeToString(image)
	payload := chatRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: systemHint},
			{Role: "user", Content: []map[string]any{
				{"type": "text", "text": userPrompt},
				{"type": "image_url", "image_url": map[string]string{"url": "data:image/png;base64," + b64}},
			}},
		},
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(blob))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return "", fmt.Errorf("provider HTTP %d: %s", resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Chat-backed stages: same transport, different question.

type modelStage struct{ client *ChatClient }

func (s modelStage) Source() internal.ObservationSource { return internal.SourceModel }
func (s modelStage) Recognize(ctx context.Context, image []byte) (string, error) {
	return s.client.Complete(ctx, promptModel, image)
}

type captionStage struct{ client *ChatClient }

func (s captionStage) Source() internal.ObservationSource { return internal.SourceCaption }
func (s captionStage) Recognize(ctx context.Context, image []byte) (string, error) {
	return s.client.Complete(ctx, promptCaption, image)
}

type labelStage struct{ client *ChatClient }

func (s labelStage) Source() internal.ObservationSource { return internal.SourceLabel }
func (s labelStage) Recognize(ctx context.Context, image []byte) (string, error) {
	return s.client.Complete(ctx, promptLabel, image)
}
