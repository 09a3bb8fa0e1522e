// Package llmcall is the shared shell around a provider's single caption
// request: it collects prompt contexts, resolves the model settings and
// records metadata, leaving each provider to perform one API call.
package llmcall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
)

const defaultMaxTokens = 1000

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrEmptyOutput    = errors.New("response output is empty")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is one resolved caption call. Messages always end with the prompt.
type Request struct {
	Model          string
	System         string
	Messages       []Message
	MaxTokens      int
	Temperature    *float64
	ReasoningLevel *model.ReasoningLevel
}

// Prompt is the final user message.
func (r Request) Prompt() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// NormalizeFunc drops or rejects options the resolved model cannot take.
type NormalizeFunc func(modelName string, cfg model.GeneratorConfig, log logging.Logger) (model.GeneratorConfig, error)

// Provider describes the defaults of one caption backend.
type Provider struct {
	Name string
	// Model is used when neither WithModel nor ModelEnv is set.
	Model    string
	ModelEnv string
	// Normalize defaults to RejectReasoning.
	Normalize NormalizeFunc
}

// SendFunc performs the API call and may add provider fields to meta.
type SendFunc func(ctx context.Context, request Request, meta model.GenerationMetadata) (string, error)

// Generator implements model.ContentGenerator[string] for any SendFunc.
type Generator struct {
	provider Provider
	prompt   string
	cfg      model.GeneratorConfig
	send     SendFunc

	mu       sync.Mutex
	contexts []model.PromptContext
}

func NewGenerator(provider Provider, prompt string, cfg model.GeneratorConfig, send SendFunc) (model.ContentGenerator[string], error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, utils.WrapIfNotNil(ErrPromptRequired)
	}
	if provider.Normalize == nil {
		provider.Normalize = RejectReasoning(provider.Name)
	}
	return &Generator{provider: provider, prompt: prompt, cfg: cfg, send: send}, nil
}

func (g *Generator) AddPromptContext(ctx context.Context, messageType model.ContextMessageType, content string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.contexts = append(g.contexts, model.PromptContext{MessageType: messageType, Content: content})
	logging.NewLogger(ctx).Debugf("%s prompt context added total_contexts=%d", g.provider.Name, len(g.contexts))
}

func (g *Generator) Generate(ctx context.Context) (string, model.GenerationMetadata, error) {
	start := time.Now()
	log := logging.NewLogger(ctx)

	modelName := ResolveModel(g.cfg.Model, g.provider.ModelEnv, g.provider.Model)
	meta := NewMetadata(g.provider.Name, modelName)
	defer SetLatency(meta, start)

	cfg, err := g.provider.Normalize(modelName, g.cfg, log)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	request := g.buildRequest(modelName, cfg)
	log.Infof(
		"caption_request provider=%q model=%q prompt_chars=%d messages=%d system_chars=%d temperature=%s max_tokens=%d",
		g.provider.Name,
		modelName,
		len(g.prompt),
		len(request.Messages),
		len(request.System),
		model.FormatOptional(request.Temperature),
		request.MaxTokens,
	)

	text, err := g.send(ctx, request, meta)
	if err != nil {
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		log.Errorf("error: %v", ErrEmptyOutput)
		return "", meta, utils.WrapIfNotNil(ErrEmptyOutput)
	}
	return text, meta, nil
}

// buildRequest folds system contexts into one instruction block and keeps
// the other contexts as turns ahead of the prompt. Blank contexts are dropped.
func (g *Generator) buildRequest(modelName string, cfg model.GeneratorConfig) Request {
	g.mu.Lock()
	contexts := append([]model.PromptContext(nil), g.contexts...)
	g.mu.Unlock()

	request := Request{
		Model:          modelName,
		MaxTokens:      defaultMaxTokens,
		Temperature:    cfg.Temperature,
		ReasoningLevel: cfg.ReasoningLevel,
		Messages:       make([]Message, 0, len(contexts)+1),
	}
	if cfg.MaxTokens != nil && *cfg.MaxTokens > 0 {
		request.MaxTokens = *cfg.MaxTokens
	}

	var system []string
	for _, item := range contexts {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		switch item.MessageType {
		case model.ContextMessageTypeSystem:
			system = append(system, content)
		case model.ContextMessageTypeAssistant:
			request.Messages = append(request.Messages, Message{Role: RoleAssistant, Content: content})
		default:
			request.Messages = append(request.Messages, Message{Role: RoleUser, Content: content})
		}
	}
	request.System = strings.Join(system, "\n\n")
	request.Messages = append(request.Messages, Message{Role: RoleUser, Content: g.prompt})
	return request
}

// RejectReasoning is the Normalize of providers without a reasoning control.
func RejectReasoning(providerName string) NormalizeFunc {
	return func(_ string, cfg model.GeneratorConfig, log logging.Logger) (model.GeneratorConfig, error) {
		if cfg.ReasoningLevel == nil {
			return cfg, nil
		}
		if !cfg.IgnoreInvalidGeneratorOptions {
			return cfg, fmt.Errorf("reasoning level is not supported for %s provider", providerName)
		}
		if log != nil {
			log.Warnf("ignoring reasoning level for %s provider", providerName)
		}
		cfg.ReasoningLevel = nil
		return cfg, nil
	}
}

// ResolveModel picks the explicit model, then the env override, then fallback.
func ResolveModel(explicit *string, envKey string, fallback string) string {
	if explicit != nil {
		if name := strings.TrimSpace(*explicit); name != "" {
			return name
		}
	}
	return FromEnv("", envKey, fallback)
}

// FromEnv returns value, else the env var, else fallback. Values are trimmed.
func FromEnv(value string, envKey string, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	if envKey != "" {
		if fromEnv := strings.TrimSpace(os.Getenv(envKey)); fromEnv != "" {
			return fromEnv
		}
	}
	return fallback
}

func NewMetadata(providerName string, modelName string) model.GenerationMetadata {
	if strings.TrimSpace(modelName) == "" {
		modelName = "unknown"
	}
	return model.GenerationMetadata{
		model.MetadataKeyProvider: providerName,
		model.MetadataKeyModel:    modelName,
	}
}

func SetLatency(meta model.GenerationMetadata, start time.Time) {
	meta[model.MetadataKeyLatencyMs] = strconv.FormatInt(time.Since(start).Milliseconds(), 10)
}

// SetUsage records token counts. A non-positive total is derived from the parts.
func SetUsage(meta model.GenerationMetadata, input, output, total int64) {
	if total <= 0 {
		total = input + output
	}
	meta[model.MetadataKeyInputTokens] = strconv.FormatInt(input, 10)
	meta[model.MetadataKeyOutputTokens] = strconv.FormatInt(output, 10)
	meta[model.MetadataKeyTotalTokens] = strconv.FormatInt(total, 10)
}

// Set writes value under key unless it is blank.
func Set(meta model.GenerationMetadata, key string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		meta[key] = value
	}
}
