package caption

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
)

const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.1
)

type LanguageDetector interface {
	Detect(text string) string
}

type ServiceConfig struct {
	TranscriptionProvider string
	NewTranscriber        model.NewAudioTranscriptionGeneratorFunc
	AudioOptions          model.AudioOptions

	CaptionProvider  string
	NewGenerator     model.NewStringContentGeneratorFunc
	GeneratorOptions []model.GeneratorOption
	// SystemMessage defaults to SystemMessage when empty.
	SystemMessage string

	// Detector is optional; without it transcriptions carry no language.
	Detector LanguageDetector
}

// Service runs the two provider calls behind a caption request.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	transcriptionProvider string
	newTranscriber        model.NewAudioTranscriptionGeneratorFunc
	audioOpts             model.AudioOptions

	captionProvider string
	newGenerator    model.NewStringContentGeneratorFunc
	generatorOpts   []model.GeneratorOption
	systemMessage   string

	detector LanguageDetector
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.NewTranscriber == nil {
		return nil, utils.WrapIfNotNil(errors.New("transcriber factory is required"))
	}
	if cfg.NewGenerator == nil {
		return nil, utils.WrapIfNotNil(errors.New("caption generator factory is required"))
	}

	systemMessage := strings.TrimSpace(cfg.SystemMessage)
	if systemMessage == "" {
		systemMessage = SystemMessage
	}

	opts := make([]model.GeneratorOption, 0, len(cfg.GeneratorOptions)+2)
	opts = append(opts, model.WithTemperature(DefaultTemperature), model.WithMaxTokens(DefaultMaxTokens))
	opts = append(opts, cfg.GeneratorOptions...)

	return &Service{
		transcriptionProvider: cfg.TranscriptionProvider,
		newTranscriber:        cfg.NewTranscriber,
		audioOpts:             cfg.AudioOptions,
		captionProvider:       cfg.CaptionProvider,
		newGenerator:          cfg.NewGenerator,
		generatorOpts:         opts,
		systemMessage:         systemMessage,
		detector:              cfg.Detector,
	}, nil
}

// Transcribe converts the audio file at audioPath to text.
// Every failure is returned as a *TranscriptionError.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (Transcription, error) {
	log := logging.NewLogger(ctx)

	if strings.TrimSpace(audioPath) == "" {
		return Transcription{}, s.transcriptionError(ErrEmptyAudioPath)
	}
	if !IsAllowedAudioFile(audioPath) {
		log.Warnf("rejecting audio path=%q", audioPath)
		return Transcription{}, s.transcriptionError(fmt.Errorf("%w: %s", ErrUnsupportedAudioType, audioPath))
	}

	generator, err := s.newTranscriber(audioPath, s.audioOpts)
	if err != nil {
		log.Errorf("error: %v", err)
		return Transcription{}, s.transcriptionError(err)
	}

	text, meta, err := generator.Generate(ctx)
	if err != nil {
		log.Errorf("error: %v", err)
		return Transcription{}, s.transcriptionError(err)
	}

	result := Transcription{
		Text:     strings.TrimSpace(text),
		Metadata: model.GenerationMetadata{}.Merge(meta),
	}
	if s.detector != nil && result.Text != "" {
		result.Language = s.detector.Detect(result.Text)
		if result.Language != "" {
			result.Metadata[model.MetadataKeyLanguage] = result.Language
		}
	}

	log.Infof(
		"transcribed path=%q provider=%q chars=%d language=%q latency_ms=%s",
		audioPath,
		s.transcriptionProvider,
		len(result.Text),
		result.Language,
		result.Metadata[model.MetadataKeyLatencyMs],
	)
	return result, nil
}

// GenerateCaption formats transcription as a Reuters caption.
// An empty transcription is sent as is. A reply without recognised sections
// is a successful, empty ParsedCaption; provider failures are *GenerationError.
func (s *Service) GenerateCaption(ctx context.Context, transcription string) (ParsedCaption, error) {
	log := logging.NewLogger(ctx)

	generator, err := s.newGenerator(BuildPrompt(transcription), s.generatorOpts...)
	if err != nil {
		log.Errorf("error: %v", err)
		return ParsedCaption{}, s.generationError(err)
	}
	generator.AddPromptContext(ctx, model.ContextMessageTypeSystem, s.systemMessage)

	raw, meta, err := generator.Generate(ctx)
	if err != nil {
		log.Errorf("error: %v", err)
		return ParsedCaption{}, s.generationError(err)
	}

	parsed := ParseResponse(raw)
	if parsed.IsEmpty() {
		log.Warnf("caption reply had no recognised sections provider=%q raw=%q", s.captionProvider, raw)
	}

	log.Infof(
		"generated caption provider=%q model=%q caption_lines=%d missing_items=%d latency_ms=%s output_tokens=%s",
		s.captionProvider,
		meta[model.MetadataKeyModel],
		countLines(parsed.FormattedCaption),
		len(parsed.MissingInformation),
		meta[model.MetadataKeyLatencyMs],
		meta[model.MetadataKeyOutputTokens],
	)
	return parsed, nil
}

func (s *Service) transcriptionError(err error) error {
	return &TranscriptionError{Provider: s.transcriptionProvider, Err: err}
}

func (s *Service) generationError(err error) error {
	return &GenerationError{Provider: s.captionProvider, Err: err}
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}
