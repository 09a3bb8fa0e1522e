// Package openai formats captions with the Responses API and transcribes
// recordings with the Audio Transcriptions API.
package openai

import (
	"fmt"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const providerName = "openai"

// newClient builds an SDK client with retries disabled; callers own retry policy.
// The SDK falls back to OPENAI_API_KEY and OPENAI_BASE_URL itself.
func newClient(url string, authToken string) openai.Client {
	requestOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if url = strings.TrimSpace(url); url != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(url))
	}
	if authToken = strings.TrimSpace(authToken); authToken != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(authToken))
	}
	return openai.NewClient(requestOpts...)
}

// normalizeGeneratorOptionsForModel drops or rejects options the model family cannot take.
// Reasoning models reject temperature; other models reject reasoning effort.
func normalizeGeneratorOptionsForModel(
	modelName string,
	cfg model.GeneratorConfig,
	log logging.Logger,
) (model.GeneratorConfig, error) {
	reasoningModel := isReasoningModel(modelName)

	if cfg.Temperature != nil && reasoningModel {
		if !cfg.IgnoreInvalidGeneratorOptions {
			return cfg, utils.WrapIfNotNil(fmt.Errorf("temperature is not supported for reasoning model %q", modelName))
		}
		if log != nil {
			log.Warnf("ignoring temperature for reasoning model %q", modelName)
		}
		cfg.Temperature = nil
	}

	if cfg.ReasoningLevel != nil && !reasoningModel {
		if !cfg.IgnoreInvalidGeneratorOptions {
			return cfg, utils.WrapIfNotNil(fmt.Errorf("reasoning effort is not supported for non-reasoning model %q", modelName))
		}
		if log != nil {
			log.Warnf("ignoring reasoning effort for non-reasoning model %q", modelName)
		}
		cfg.ReasoningLevel = nil
	}

	return cfg, nil
}

func isReasoningModel(modelName string) bool {
	name := strings.ToLower(strings.TrimSpace(modelName))
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func mapReasoningLevel(level model.ReasoningLevel) shared.ReasoningEffort {
	switch level {
	case model.ReasoningLevelNone:
		return shared.ReasoningEffortNone
	case model.ReasoningLevelLow:
		return shared.ReasoningEffortLow
	case model.ReasoningLevelHigh:
		return shared.ReasoningEffortHigh
	default:
		return shared.ReasoningEffortMedium
	}
}
