package model

import "context"

// NewAudioTranscriptionGeneratorFunc is the factory each transcription provider implements.
type NewAudioTranscriptionGeneratorFunc func(filePath string, opts AudioOptions) (AudioTranscriptionGenerator, error)

type AudioTranscriptionGenerator interface {
	Generate(ctx context.Context) (string, GenerationMetadata, error)
}

// AudioKeyword is a proper noun the speaker is likely to say.
type AudioKeyword struct {
	Word string `json:"word,omitempty"`
}

type AudioOptions struct {
	IgnoreInvalidGeneratorOptions bool
	URL                           string
	AuthToken                     string
	Model                         string
	// Prompt overrides the provider's default audio prompt.
	// When Prompt is set, keyword hints are not appended.
	Prompt string
	// Keywords are names and places the speaker is likely to mention.
	// Providers turn these into "Names and places: a, b." when Prompt is empty.
	Keywords []AudioKeyword
}

// KeywordsFromWords builds bare keyword hints from a list of words.
func KeywordsFromWords(words []string) []AudioKeyword {
	keywords := make([]AudioKeyword, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		keywords = append(keywords, AudioKeyword{Word: word})
	}
	return keywords
}
