package openaicompat

import (
	"context"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

var audioProvider = llmcall.Provider{
	Name:     providerName,
	Model:    openai.Whisper1,
	ModelEnv: "OPENAI_COMPAT_TRANSCRIPTION_MODEL",
}

func NewAudioTranscriptionGenerator(filePath string, opts model.AudioOptions) (model.AudioTranscriptionGenerator, error) {
	client, err := newAPIClient(opts.URL, opts.AuthToken)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return llmcall.NewTranscriber(audioProvider, filePath, opts, func(ctx context.Context, audio llmcall.Audio, meta model.GenerationMetadata) (string, error) {
		request := buildAudioRequest(audio)
		meta[model.MetadataKeyResponseFormat] = string(request.Format)

		response, err := client.CreateTranscription(ctx, request)
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}
		llmcall.Set(meta, model.MetadataKeyLanguage, response.Language)
		return response.Text, nil
	})
}

// buildAudioRequest asks whisper models for verbose_json, which carries the
// detected language; other gateways' models get plain json.
func buildAudioRequest(audio llmcall.Audio) openai.AudioRequest {
	format := openai.AudioResponseFormatJSON
	if strings.Contains(strings.ToLower(audio.Model), "whisper") {
		format = openai.AudioResponseFormatVerboseJSON
	}
	return openai.AudioRequest{
		Model:    audio.Model,
		FilePath: audio.Path,
		Prompt:   audio.Prompt,
		Format:   format,
	}
}
