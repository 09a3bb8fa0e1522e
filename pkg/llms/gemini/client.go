// Package gemini formats captions and transcribes recordings with the
// Gemini API.
package gemini

import (
	"context"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"google.golang.org/genai"
)

const envGeminiKey = "GEMINI_KEY"

var provider = llmcall.Provider{
	Name:     "gemini",
	Model:    "gemini-2.5-flash",
	ModelEnv: "GEMINI_MODEL",
	// Gemini takes a thinking level on every model.
	Normalize: func(_ string, cfg model.GeneratorConfig, _ logging.Logger) (model.GeneratorConfig, error) {
		return cfg, nil
	},
}

func newAPIClient(ctx context.Context, url string, authToken string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  llmcall.FromEnv(authToken, envGeminiKey, ""),
	}
	if baseURL := strings.TrimSpace(url); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return client, nil
}

// generate runs one GenerateContent call and records usage, response id and finish reason.
func generate(
	ctx context.Context,
	url string,
	authToken string,
	modelName string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
	meta model.GenerationMetadata,
) (string, error) {
	client, err := newAPIClient(ctx, url, authToken)
	if err != nil {
		return "", err
	}

	response, err := client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	if usage := response.UsageMetadata; usage != nil {
		llmcall.SetUsage(meta, int64(usage.PromptTokenCount), int64(usage.CandidatesTokenCount), int64(usage.TotalTokenCount))
	}
	llmcall.Set(meta, model.MetadataKeyResponseID, response.ResponseID)
	if len(response.Candidates) > 0 && response.Candidates[0] != nil {
		llmcall.Set(meta, model.MetadataKeyResponseStatus, string(response.Candidates[0].FinishReason))
	}
	return response.Text(), nil
}
