// Package language names the language a transcription was spoken in.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// minimumRelativeDistance makes lingua report no language instead of a
// coin flip between close candidates on short input.
const minimumRelativeDistance = 0.1

// Detector wraps a lingua detector. Building one loads language models, so
// callers build it once and share it; Detect is safe for concurrent use.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over languages. lingua needs at least two
// candidates, so fewer than two means every supported language.
func New(languages ...lingua.Language) *Detector {
	var builder lingua.LanguageDetectorBuilder
	if len(languages) >= 2 {
		builder = lingua.NewLanguageDetectorBuilder().FromLanguages(languages...)
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	}
	return &Detector{
		detector: builder.WithMinimumRelativeDistance(minimumRelativeDistance).Build(),
	}
}

// Detect returns the English name of the language of text, such as
// "English" or "French", or "" when detection is inconclusive.
func (d *Detector) Detect(text string) string {
	if d == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return lang.String()
}
