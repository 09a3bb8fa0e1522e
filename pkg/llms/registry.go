// Package llms maps provider names to their generator factories.
package llms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/anthropic"
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/bedrock"
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/gemini"
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/ollama"
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/openai"
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/openaicompat"
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/whisper"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
)

const (
	ProviderAnthropic    = "anthropic"
	ProviderOpenAI       = "openai"
	ProviderOpenAICompat = "openai_compat"
	ProviderGemini       = "gemini"
	ProviderBedrock      = "bedrock"
	ProviderOllama       = "ollama"
	ProviderWhisper      = "whisper"

	DefaultCaptionProvider       = ProviderAnthropic
	DefaultTranscriptionProvider = ProviderWhisper
)

var contentGenerators = map[string]model.NewStringContentGeneratorFunc{
	ProviderAnthropic:    anthropic.NewStringContentGenerator,
	ProviderOpenAI:       openai.NewStringContentGenerator,
	ProviderOpenAICompat: openaicompat.NewStringContentGenerator,
	ProviderGemini:       gemini.NewStringContentGenerator,
	ProviderBedrock:      bedrock.NewStringContentGenerator,
	ProviderOllama:       ollama.NewStringContentGenerator,
}

var audioTranscribers = map[string]model.NewAudioTranscriptionGeneratorFunc{
	ProviderWhisper:      whisper.NewAudioTranscriptionGenerator,
	ProviderOpenAI:       openai.NewAudioTranscriptionGenerator,
	ProviderOpenAICompat: openaicompat.NewAudioTranscriptionGenerator,
	ProviderGemini:       gemini.NewAudioTranscriptionGenerator,
}

// ContentGeneratorFactory returns the caption generator factory for name.
// Names are matched case-insensitively; "-" is accepted for "_".
func ContentGeneratorFactory(name string) (model.NewStringContentGeneratorFunc, error) {
	factory, ok := contentGenerators[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("unknown caption provider %q (supported: %s)", name, strings.Join(ContentProviders(), ", "))
	}
	return factory, nil
}

// AudioTranscriptionFactory returns the transcription factory for name.
func AudioTranscriptionFactory(name string) (model.NewAudioTranscriptionGeneratorFunc, error) {
	factory, ok := audioTranscribers[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("unknown transcription provider %q (supported: %s)", name, strings.Join(TranscriptionProviders(), ", "))
	}
	return factory, nil
}

func ContentProviders() []string {
	return sortedKeys(contentGenerators)
}

func TranscriptionProviders() []string {
	return sortedKeys(audioTranscribers)
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
