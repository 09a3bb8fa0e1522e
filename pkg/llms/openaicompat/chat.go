package openaicompat

import (
	"context"
	"errors"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

var chatProvider = llmcall.Provider{
	Name:     providerName,
	Model:    "gpt-4o-mini",
	ModelEnv: "OPENAI_COMPAT_MODEL",
}

func NewStringContentGenerator(prompt string, opts ...model.GeneratorOption) (model.ContentGenerator[string], error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	client, err := newAPIClient(cfg.URL, cfg.AuthToken)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return llmcall.NewGenerator(chatProvider, prompt, cfg, func(ctx context.Context, request llmcall.Request, meta model.GenerationMetadata) (string, error) {
		response, err := client.CreateChatCompletion(ctx, buildChatRequest(request))
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}

		llmcall.SetUsage(meta,
			int64(response.Usage.PromptTokens),
			int64(response.Usage.CompletionTokens),
			int64(response.Usage.TotalTokens),
		)
		llmcall.Set(meta, model.MetadataKeyResponseID, response.ID)
		llmcall.Set(meta, model.MetadataKeyModel, response.Model)
		if len(response.Choices) == 0 {
			return "", utils.WrapIfNotNil(errors.New("chat completion returned no choices"))
		}
		llmcall.Set(meta, model.MetadataKeyResponseStatus, string(response.Choices[0].FinishReason))
		return response.Choices[0].Message.Content, nil
	})
}

func buildChatRequest(request llmcall.Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.Messages)+1)
	if request.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: request.System})
	}
	for _, message := range request.Messages {
		role := openai.ChatMessageRoleUser
		if message.Role == llmcall.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: message.Content})
	}

	chatRequest := openai.ChatCompletionRequest{
		Model:     request.Model,
		Messages:  messages,
		MaxTokens: request.MaxTokens,
	}
	if request.Temperature != nil {
		chatRequest.Temperature = float32(*request.Temperature)
	}
	return chatRequest
}
