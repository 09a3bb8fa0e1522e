package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	requestTimeout   = 90 * time.Second

	envAPIKey  = "ANTHROPIC_API_KEY"
	envBaseURL = "ANTHROPIC_BASE_URL"
)

// messagesClient posts to the Messages API, directly or through a
// LiteLLM-style proxy when the base URL is overridden.
type messagesClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type turn struct {
	Role    string      `json:"role"`
	Content []textBlock `json:"content"`
}

type messagesRequest struct {
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
	System      string   `json:"system,omitempty"`
	Messages    []turn   `json:"messages"`
}

type messagesResponse struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	Content    []textBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func newMessagesClient(cfg model.GeneratorConfig) (*messagesClient, error) {
	apiKey := llmcall.FromEnv(cfg.AuthToken, envAPIKey, "")
	if apiKey == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token is required (set WithAuthToken or ANTHROPIC_API_KEY)"))
	}

	return &messagesClient{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimSuffix(llmcall.FromEnv(cfg.URL, envBaseURL, defaultBaseURL), "/"),
		apiKey:  apiKey,
	}, nil
}

// send renders the caption request as one Messages call and returns the
// text blocks joined by newlines.
func (c *messagesClient) send(ctx context.Context, request llmcall.Request, meta model.GenerationMetadata) (string, error) {
	body := messagesRequest{
		Model:       request.Model,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
		System:      request.System,
		Messages:    make([]turn, 0, len(request.Messages)),
	}
	for _, message := range request.Messages {
		body.Messages = append(body.Messages, turn{
			Role:    string(message.Role),
			Content: []textBlock{{Type: "text", Text: message.Content}},
		})
	}

	response, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}

	llmcall.SetUsage(meta, response.Usage.InputTokens, response.Usage.OutputTokens, 0)
	llmcall.Set(meta, model.MetadataKeyResponseID, response.ID)
	llmcall.Set(meta, model.MetadataKeyResponseStatus, response.StopReason)
	llmcall.Set(meta, model.MetadataKeyModel, response.Model)

	parts := make([]string, 0, len(response.Content))
	for _, block := range response.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (c *messagesClient) post(ctx context.Context, body messagesRequest) (*messagesResponse, error) {
	httpRequest, err := c.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	httpResponse, err := c.http.Do(httpRequest)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	raw, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	if httpResponse.StatusCode/100 != 2 {
		return nil, utils.WrapIfNotNil(statusError(httpResponse.StatusCode, raw))
	}

	var response messagesResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &response, nil
}

func (c *messagesClient) newHTTPRequest(ctx context.Context, body messagesRequest) (*http.Request, error) {
	bits, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(bits))
	if err != nil {
		return nil, err
	}
	httpRequest.Header.Set("content-type", "application/json")
	httpRequest.Header.Set("anthropic-version", anthropicVersion)
	httpRequest.Header.Set("x-api-key", c.apiKey)
	if c.baseURL != defaultBaseURL {
		// Proxies authenticate with a bearer token.
		httpRequest.Header.Set("authorization", "Bearer "+c.apiKey)
	}
	return httpRequest, nil
}

func statusError(status int, raw []byte) error {
	message := strings.TrimSpace(string(raw))
	var parsed apiError
	if json.Unmarshal(raw, &parsed) == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		message = strings.TrimSpace(parsed.Error.Message)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("anthropic API error (%d): %s", status, message)
}
