package bedrock

import (
	"context"
	"errors"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var provider = llmcall.Provider{
	Name:     "bedrock",
	Model:    "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
	ModelEnv: "BEDROCK_MODEL",
}

func NewStringContentGenerator(prompt string, opts ...model.GeneratorOption) (model.ContentGenerator[string], error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	return llmcall.NewGenerator(provider, prompt, cfg, func(ctx context.Context, request llmcall.Request, meta model.GenerationMetadata) (string, error) {
		client, err := newConverseClient(ctx, cfg.URL)
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}

		output, err := client.Converse(ctx, buildConverseInput(request))
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}

		if output.Usage != nil {
			llmcall.SetUsage(meta,
				int64(aws.ToInt32(output.Usage.InputTokens)),
				int64(aws.ToInt32(output.Usage.OutputTokens)),
				int64(aws.ToInt32(output.Usage.TotalTokens)),
			)
		}
		llmcall.Set(meta, model.MetadataKeyResponseStatus, string(output.StopReason))

		member, ok := output.Output.(*bedrocktypes.ConverseOutputMemberMessage)
		if !ok || member == nil {
			return "", utils.WrapIfNotNil(errors.New("converse output did not contain a message"))
		}
		return extractText(member.Value), nil
	})
}

func buildConverseInput(request llmcall.Request) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId:         aws.String(request.Model),
		Messages:        make([]bedrocktypes.Message, 0, len(request.Messages)),
		InferenceConfig: &bedrocktypes.InferenceConfiguration{MaxTokens: aws.Int32(int32(request.MaxTokens))},
	}
	if request.System != "" {
		input.System = []bedrocktypes.SystemContentBlock{&bedrocktypes.SystemContentBlockMemberText{Value: request.System}}
	}
	if request.Temperature != nil {
		input.InferenceConfig.Temperature = aws.Float32(float32(*request.Temperature))
	}
	for _, message := range request.Messages {
		role := bedrocktypes.ConversationRoleUser
		if message.Role == llmcall.RoleAssistant {
			role = bedrocktypes.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, bedrocktypes.Message{
			Role:    role,
			Content: []bedrocktypes.ContentBlock{&bedrocktypes.ContentBlockMemberText{Value: message.Content}},
		})
	}
	return input
}

// extractText keeps line breaks inside each block so section headers stay
// on their own lines.
func extractText(message bedrocktypes.Message) string {
	parts := make([]string, 0, len(message.Content))
	for _, block := range message.Content {
		textBlock, ok := block.(*bedrocktypes.ContentBlockMemberText)
		if !ok || textBlock == nil || strings.TrimSpace(textBlock.Value) == "" {
			continue
		}
		parts = append(parts, textBlock.Value)
	}
	return strings.Join(parts, "\n")
}
