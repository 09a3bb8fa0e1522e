package ollama

import (
	"context"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	ollamasdk "github.com/rozoomcool/go-ollama-sdk"
)

var provider = llmcall.Provider{
	Name:     "ollama",
	Model:    "llama3.1",
	ModelEnv: "OLLAMA_MODEL",
}

// NewStringContentGenerator talks to an unauthenticated local server; an
// auth token is accepted and ignored.
func NewStringContentGenerator(prompt string, opts ...model.GeneratorOption) (model.ContentGenerator[string], error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	c := newClient(cfg.URL)
	return llmcall.NewGenerator(provider, prompt, cfg, func(ctx context.Context, request llmcall.Request, meta model.GenerationMetadata) (string, error) {
		response, err := c.chat(ctx, ollamaChatRequest{
			Model:    request.Model,
			Messages: toWireMessages(buildMessages(request)),
			Stream:   false,
			Options:  buildOllamaChatOptions(request),
		})
		if err != nil {
			return "", err
		}

		llmcall.SetUsage(meta, response.PromptEvalCount, response.EvalCount, 0)
		llmcall.Set(meta, model.MetadataKeyResponseStatus, response.DoneReason)
		llmcall.Set(meta, model.MetadataKeyModel, response.Model)
		return response.Message.Content, nil
	})
}

func buildMessages(request llmcall.Request) []ollamasdk.ChatMessage {
	messages := make([]ollamasdk.ChatMessage, 0, len(request.Messages)+1)
	if request.System != "" {
		messages = append(messages, ollamasdk.ChatMessage{Role: "system", Content: request.System})
	}
	for _, message := range request.Messages {
		messages = append(messages, ollamasdk.ChatMessage{Role: string(message.Role), Content: message.Content})
	}
	return messages
}

func toWireMessages(messages []ollamasdk.ChatMessage) []ollamaChatMessage {
	out := make([]ollamaChatMessage, 0, len(messages))
	for _, message := range messages {
		out = append(out, ollamaChatMessage{
			Role:    message.Role,
			Content: strings.TrimSpace(message.Content),
		})
	}
	return out
}

func buildOllamaChatOptions(request llmcall.Request) *ollamaChatOptions {
	numPredict := request.MaxTokens
	return &ollamaChatOptions{
		Temperature: request.Temperature,
		NumPredict:  &numPredict,
	}
}
