package openai

import (
	"context"
	"errors"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

var textProvider = llmcall.Provider{
	Name:      providerName,
	Model:     "gpt-5-mini",
	ModelEnv:  "OPENAI_MODEL",
	Normalize: normalizeGeneratorOptionsForModel,
}

func NewStringContentGenerator(prompt string, opts ...model.GeneratorOption) (model.ContentGenerator[string], error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	apiClient := newClient(cfg.URL, cfg.AuthToken)
	return llmcall.NewGenerator(textProvider, prompt, cfg, func(ctx context.Context, request llmcall.Request, meta model.GenerationMetadata) (string, error) {
		response, err := apiClient.Responses.New(ctx, buildResponseParams(request))
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}
		if response == nil {
			return "", utils.WrapIfNotNil(errors.New("responses API returned nil response"))
		}

		llmcall.SetUsage(meta, response.Usage.InputTokens, response.Usage.OutputTokens, response.Usage.TotalTokens)
		llmcall.Set(meta, model.MetadataKeyResponseID, response.ID)
		llmcall.Set(meta, model.MetadataKeyResponseStatus, string(response.Status))
		return response.OutputText(), nil
	})
}

// buildResponseParams sends the system block as instructions and the turns as input.
func buildResponseParams(request llmcall.Request) responses.ResponseNewParams {
	items := make(responses.ResponseInputParam, 0, len(request.Messages))
	for _, message := range request.Messages {
		role := responses.EasyInputMessageRoleUser
		if message.Role == llmcall.RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(message.Content, role))
	}

	params := responses.ResponseNewParams{
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		Model:           shared.ResponsesModel(request.Model),
		MaxOutputTokens: openai.Int(int64(request.MaxTokens)),
	}
	if request.System != "" {
		params.Instructions = openai.String(request.System)
	}
	if request.Temperature != nil {
		params.Temperature = openai.Float(*request.Temperature)
	}
	if request.ReasoningLevel != nil {
		params.Reasoning = shared.ReasoningParam{Effort: mapReasoningLevel(*request.ReasoningLevel)}
	}
	return params
}
