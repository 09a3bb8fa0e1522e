// Package anthropic formats captions with Claude through the Messages API.
package anthropic

import (
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
)

var provider = llmcall.Provider{
	Name:     "anthropic",
	Model:    "claude-sonnet-4-5",
	ModelEnv: "ANTHROPIC_MODEL",
}

func NewStringContentGenerator(prompt string, opts ...model.GeneratorOption) (model.ContentGenerator[string], error) {
	cfg := model.ResolveGeneratorOpts(opts...)
	client, err := newMessagesClient(cfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return llmcall.NewGenerator(provider, prompt, cfg, client.send)
}
