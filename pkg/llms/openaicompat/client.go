// Package openaicompat talks to any gateway that speaks the OpenAI chat
// completions and audio transcription endpoints, such as a LiteLLM proxy.
package openaicompat

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

const (
	providerName       = "openai_compat"
	defaultHTTPTimeout = 120 * time.Second
	envCompatAPIKey    = "OPENAI_COMPAT_API_KEY"
	envCompatBaseURL   = "OPENAI_COMPAT_BASE_URL"
)

func newAPIClient(url string, authToken string) (*openai.Client, error) {
	apiKey := llmcall.FromEnv(authToken, envCompatAPIKey, "")
	if apiKey == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token is required (set WithAuthToken or OPENAI_COMPAT_API_KEY)"))
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL := llmcall.FromEnv(url, envCompatBaseURL, ""); baseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}

	return openai.NewClientWithConfig(clientCfg), nil
}
