package model

import (
	"context"
)

// NewStringContentGeneratorFunc is the factory each caption provider implements.
// The prompt is the fully rendered user message; system instructions are added
// through AddPromptContext before Generate is called.
type NewStringContentGeneratorFunc func(prompt string, opts ...GeneratorOption) (ContentGenerator[string], error)

type ContentGenerator[T any] interface {
	Generate(ctx context.Context) (T, GenerationMetadata, error)
	AddPromptContext(ctx context.Context, messageType ContextMessageType, content string)
}

type GenerationMetadata map[string]string

const (
	MetadataKeyProvider       = "provider"
	MetadataKeyModel          = "model"
	MetadataKeyLatencyMs      = "latency_ms"
	MetadataKeyInputTokens    = "input_tokens"
	MetadataKeyOutputTokens   = "output_tokens"
	MetadataKeyTotalTokens    = "total_tokens"
	MetadataKeyResponseID     = "response_id"
	MetadataKeyResponseStatus = "response_status"
	MetadataKeyLanguage       = "language"
	MetadataKeyResponseFormat = "response_format"
)

type PromptContext struct {
	MessageType ContextMessageType
	Content     string
}

type ContextMessageType string

const (
	ContextMessageTypeSystem    ContextMessageType = "system"    // instructions outside the user prompt, e.g. the formatter persona
	ContextMessageTypeHuman     ContextMessageType = "human"     // extra user-side context that is not the prompt itself
	ContextMessageTypeAssistant ContextMessageType = "assistant" // prior assistant turns
)

// Merge copies every key of other into m, overwriting existing keys.
func (m GenerationMetadata) Merge(other GenerationMetadata) GenerationMetadata {
	if m == nil {
		m = GenerationMetadata{}
	}
	for key, value := range other {
		m[key] = value
	}
	return m
}
