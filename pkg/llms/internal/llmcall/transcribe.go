package llmcall

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
)

var (
	ErrFilePathRequired = errors.New("file path is required")
	ErrEmptyTranscript  = errors.New("transcription response is empty")
)

// Audio is one resolved transcription call.
type Audio struct {
	Path  string
	Model string
	// Prompt is the vocabulary hint, empty when there is none.
	Prompt string
	opts   model.AudioOptions
}

// Options exposes the connection settings the call was built from.
func (a Audio) Options() model.AudioOptions {
	return a.opts
}

// TranscribeFunc performs the API call and may add provider fields to meta.
type TranscribeFunc func(ctx context.Context, audio Audio, meta model.GenerationMetadata) (string, error)

// Transcriber implements model.AudioTranscriptionGenerator for any TranscribeFunc.
type Transcriber struct {
	provider   Provider
	audio      Audio
	transcribe TranscribeFunc
}

func NewTranscriber(provider Provider, filePath string, opts model.AudioOptions, transcribe TranscribeFunc) (model.AudioTranscriptionGenerator, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, utils.WrapIfNotNil(ErrFilePathRequired)
	}

	modelName := strings.TrimSpace(opts.Model)
	return &Transcriber{
		provider: provider,
		audio: Audio{
			Path:   filePath,
			Model:  ResolveModel(&modelName, provider.ModelEnv, provider.Model),
			Prompt: TranscriptionPrompt(opts),
			opts:   opts,
		},
		transcribe: transcribe,
	}, nil
}

func (t *Transcriber) Generate(ctx context.Context) (string, model.GenerationMetadata, error) {
	start := time.Now()
	meta := NewMetadata(t.provider.Name, t.audio.Model)
	defer SetLatency(meta, start)

	log := logging.NewLogger(ctx)
	log.Infof(
		"audio_transcription_request provider=%q path=%q model=%q prompt_chars=%d",
		t.provider.Name,
		t.audio.Path,
		t.audio.Model,
		len(t.audio.Prompt),
	)

	text, err := t.transcribe(ctx, t.audio, meta)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		log.Errorf("error: %v", ErrEmptyTranscript)
		return "", meta, utils.WrapIfNotNil(ErrEmptyTranscript)
	}
	return text, meta, nil
}

// TranscriptionPrompt is the hint every speech backend receives: the
// configured prompt, or the expected names and places as one sentence.
// Speech models read the hint as preceding transcript, so it stays prose.
func TranscriptionPrompt(opts model.AudioOptions) string {
	if prompt := strings.TrimSpace(opts.Prompt); prompt != "" {
		return prompt
	}

	words := make([]string, 0, len(opts.Keywords))
	for _, keyword := range opts.Keywords {
		if word := strings.TrimSpace(keyword.Word); word != "" {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		return ""
	}
	return "Names and places: " + strings.Join(words, ", ") + "."
}

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// AudioMIMEType maps the uploadable extensions to their MIME types.
func AudioMIMEType(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filePath)))
	mimeType, ok := audioMIMETypes[ext]
	if !ok {
		return "", utils.WrapIfNotNil(errors.New("unsupported audio file extension: " + ext))
	}
	return mimeType, nil
}
