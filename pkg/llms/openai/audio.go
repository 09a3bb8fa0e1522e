package openai

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	openai "github.com/openai/openai-go/v3"
)

const whisperModel = "whisper-1"

var audioProvider = llmcall.Provider{
	Name:     providerName,
	Model:    whisperModel,
	ModelEnv: "OPENAI_TRANSCRIPTION_MODEL",
}

// NewAudioTranscriptionGenerator transcribes one recording. whisper-1 is asked
// for verbose_json so the detected language comes back with the text; the
// gpt-4o transcribe models only answer json.
func NewAudioTranscriptionGenerator(filePath string, opts model.AudioOptions) (model.AudioTranscriptionGenerator, error) {
	apiClient := newClient(opts.URL, opts.AuthToken)
	return llmcall.NewTranscriber(audioProvider, filePath, opts, func(ctx context.Context, audio llmcall.Audio, meta model.GenerationMetadata) (string, error) {
		file, err := os.Open(audio.Path)
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}
		defer func() {
			_ = file.Close()
		}()

		params := buildTranscriptionParams(audio)
		params.File = file
		meta[model.MetadataKeyResponseFormat] = string(params.ResponseFormat)

		response, err := apiClient.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}
		if response == nil {
			return "", utils.WrapIfNotNil(errors.New("audio transcriptions API returned nil response"))
		}

		llmcall.Set(meta, model.MetadataKeyLanguage, response.Language)
		if response.Usage.TotalTokens > 0 {
			llmcall.SetUsage(meta, response.Usage.InputTokens, response.Usage.OutputTokens, response.Usage.TotalTokens)
		}
		return response.Text, nil
	})
}

func buildTranscriptionParams(audio llmcall.Audio) openai.AudioTranscriptionNewParams {
	params := openai.AudioTranscriptionNewParams{
		Model:          openai.AudioModel(audio.Model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if strings.EqualFold(audio.Model, whisperModel) {
		params.ResponseFormat = openai.AudioResponseFormatVerboseJSON
	}
	if audio.Prompt != "" {
		params.Prompt = openai.String(audio.Prompt)
	}
	return params
}
