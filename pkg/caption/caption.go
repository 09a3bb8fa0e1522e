// Package caption turns a photographer's spoken description into a
// Reuters-style photo caption: it builds the formatter prompt, calls the
// configured providers, and parses the two-section reply.
package caption

import "github.com/Nephrolytics-ai/caption-generator/pkg/model"

// ParsedCaption is the structured result of a caption request.
type ParsedCaption struct {
	FormattedCaption   string   `json:"formatted_caption" jsonschema:"description=Caption text with one line per paragraph"`
	MissingInformation []string `json:"missing_information" jsonschema:"description=Details the photographer still needs to supply"`
}

// IsEmpty reports whether the reply carried neither a caption nor missing items.
func (p ParsedCaption) IsEmpty() bool {
	return p.FormattedCaption == "" && len(p.MissingInformation) == 0
}

type Transcription struct {
	Text     string                   `json:"transcription"`
	Language string                   `json:"language,omitempty"`
	Metadata model.GenerationMetadata `json:"-"`
}
