package gemini

import (
	"context"
	"os"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"google.golang.org/genai"
)

const transcriptionInstruction = "Transcribe this audio accurately. Return only the transcript text."

// NewAudioTranscriptionGenerator sends the recording inline with a transcription instruction.
func NewAudioTranscriptionGenerator(filePath string, opts model.AudioOptions) (model.AudioTranscriptionGenerator, error) {
	return llmcall.NewTranscriber(provider, filePath, opts, func(ctx context.Context, audio llmcall.Audio, meta model.GenerationMetadata) (string, error) {
		mimeType, err := llmcall.AudioMIMEType(audio.Path)
		if err != nil {
			return "", err
		}
		audioBytes, err := os.ReadFile(audio.Path)
		if err != nil {
			return "", utils.WrapIfNotNil(err)
		}

		contents := []*genai.Content{
			genai.NewContentFromParts(
				[]*genai.Part{
					genai.NewPartFromText(transcriptionPrompt(audio)),
					genai.NewPartFromBytes(audioBytes, mimeType),
				},
				genai.RoleUser,
			),
		}
		options := audio.Options()
		return generate(ctx, options.URL, options.AuthToken, audio.Model, contents, &genai.GenerateContentConfig{}, meta)
	})
}

func transcriptionPrompt(audio llmcall.Audio) string {
	if audio.Prompt == "" {
		return transcriptionInstruction
	}
	return transcriptionInstruction + " " + audio.Prompt
}
