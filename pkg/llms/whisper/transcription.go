// Package whisper transcribes audio with a locally installed whisper CLI.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
)

const (
	defaultBinary      = "whisper"
	envWhisperBinary   = "WHISPER_BIN"
	maxLoggedCLIOutput = 2000
)

var provider = llmcall.Provider{
	Name:     "whisper",
	Model:    "base",
	ModelEnv: "WHISPER_MODEL",
}

// NewAudioTranscriptionGenerator shells out to the whisper CLI. The
// executable comes from WHISPER_BIN, defaulting to "whisper" on PATH.
func NewAudioTranscriptionGenerator(filePath string, opts model.AudioOptions) (model.AudioTranscriptionGenerator, error) {
	binary := llmcall.FromEnv("", envWhisperBinary, defaultBinary)
	return llmcall.NewTranscriber(provider, filePath, opts, func(ctx context.Context, audio llmcall.Audio, _ model.GenerationMetadata) (string, error) {
		return runCLI(ctx, binary, audio)
	})
}

func runCLI(ctx context.Context, binary string, audio llmcall.Audio) (string, error) {
	opts := audio.Options()
	if strings.TrimSpace(opts.AuthToken) != "" || strings.TrimSpace(opts.URL) != "" {
		if !opts.IgnoreInvalidGeneratorOptions {
			return "", utils.WrapIfNotNil(errors.New("whisper CLI does not accept a URL or auth token"))
		}
		logging.NewLogger(ctx).Warnf("ignoring URL and auth token for whisper provider")
	}

	if _, err := os.Stat(audio.Path); err != nil {
		return "", utils.WrapIfNotNil(err)
	}

	outputDir, err := os.MkdirTemp("", "whisper_out_*")
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	defer os.RemoveAll(outputDir)

	args := buildArgs(audio.Path, audio.Model, outputDir, audio.Prompt)
	output, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if err != nil {
		return "", utils.WrapIfNotNil(fmt.Errorf("whisper CLI failed: %w: %s", err, truncate(strings.TrimSpace(string(output)), maxLoggedCLIOutput)))
	}

	content, err := os.ReadFile(outputFilePath(outputDir, audio.Path))
	if err != nil {
		return "", utils.WrapIfNotNil(err)
	}
	return string(content), nil
}

func buildArgs(filePath, modelName, outputDir, initialPrompt string) []string {
	args := []string{
		filePath,
		"--model", modelName,
		"--output_dir", outputDir,
		"--output_format", "txt",
		"--verbose", "False",
	}
	if initialPrompt != "" {
		args = append(args, "--initial_prompt", initialPrompt)
	}
	return args
}

// outputFilePath is where the CLI writes its transcript: the input base
// name with a .txt extension.
func outputFilePath(outputDir, filePath string) string {
	base := filepath.Base(filePath)
	return filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".txt")
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
