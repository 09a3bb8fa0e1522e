// Package config reads service settings from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"github.com/joho/godotenv"
)

const (
	DefaultPort                = 8000
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultUploadDir           = "uploads"
	DefaultMaxUploadBytes      = 16 << 20
	DefaultProviderTimeout     = 2 * time.Minute
	DefaultSweepSchedule       = "@every 10m"
	DefaultSweepMaxAge         = time.Hour
	DefaultRecordingSampleRate = 44100
	DefaultRecordingMaxLength  = 10 * time.Minute
	DefaultTranscription       = "whisper"
	DefaultCaption             = "anthropic"
	DefaultCaptionMaxTokens    = 1000
	DefaultCaptionTemperature  = 0.1
)

type Config struct {
	Port      int
	Debug     bool
	LogLevel  string
	LogFormat string

	UploadDir       string
	StaticDir       string
	MaxUploadBytes  int
	ProviderTimeout time.Duration
	SweepSchedule   string
	SweepMaxAge     time.Duration

	DetectLanguage      bool
	RecordingSampleRate int
	RecordingMaxLength  time.Duration

	TranscriptionProvider string
	TranscriptionModel    string
	TranscriptionURL      string
	TranscriptionAPIKey   string
	TranscriptionPrompt   string
	TranscriptionKeywords []string

	CaptionProvider       string
	CaptionModel          string
	CaptionURL            string
	CaptionAPIKey         string
	CaptionMaxTokens      int
	CaptionTemperature    float64
	CaptionReasoningLevel *model.ReasoningLevel
}

// Load reads the given .env files, skipping any that do not exist, then
// builds a Config from the process environment. Variables already set in
// the environment win over file values.
func Load(files ...string) (Config, error) {
	for _, file := range files {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return Config{}, utils.WrapIfNotNil(err)
		}
	}

	r := reader{}
	cfg := Config{
		Port:      r.getInt("PORT", DefaultPort),
		Debug:     r.getBool("DEBUG", false),
		LogLevel:  r.getString("LOG_LEVEL", DefaultLogLevel),
		LogFormat: r.getString("LOG_FORMAT", DefaultLogFormat),

		UploadDir:       r.getString("UPLOAD_DIR", DefaultUploadDir),
		StaticDir:       r.getString("STATIC_DIR", ""),
		MaxUploadBytes:  r.getInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		ProviderTimeout: r.getDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout),
		SweepSchedule:   r.getString("SWEEP_SCHEDULE", DefaultSweepSchedule),
		SweepMaxAge:     r.getDuration("SWEEP_MAX_AGE", DefaultSweepMaxAge),

		DetectLanguage:      r.getBool("DETECT_LANGUAGE", true),
		RecordingSampleRate: r.getInt("RECORDING_SAMPLE_RATE", DefaultRecordingSampleRate),
		RecordingMaxLength:  r.getDuration("RECORDING_MAX_LENGTH", DefaultRecordingMaxLength),

		TranscriptionProvider: r.getString("TRANSCRIPTION_PROVIDER", DefaultTranscription),
		TranscriptionURL:      r.getString("TRANSCRIPTION_URL", ""),
		TranscriptionAPIKey:   r.getString("TRANSCRIPTION_API_KEY", ""),
		TranscriptionPrompt:   r.getString("TRANSCRIPTION_PROMPT", ""),
		TranscriptionKeywords: r.getList("TRANSCRIPTION_KEYWORDS"),

		CaptionProvider:    r.getString("CAPTION_PROVIDER", DefaultCaption),
		CaptionModel:       r.getString("CAPTION_MODEL", ""),
		CaptionURL:         r.getString("CAPTION_URL", r.getString("LITELLM_API_URL", "")),
		CaptionAPIKey:      r.getString("CAPTION_API_KEY", r.getString("LITELLM_API_KEY", "")),
		CaptionMaxTokens:   r.getInt("CAPTION_MAX_TOKENS", DefaultCaptionMaxTokens),
		CaptionTemperature: r.getFloat("CAPTION_TEMPERATURE", DefaultCaptionTemperature),
	}

	cfg.TranscriptionModel = r.getString("TRANSCRIPTION_MODEL", "")
	if cfg.TranscriptionModel == "" && strings.EqualFold(cfg.TranscriptionProvider, DefaultTranscription) {
		cfg.TranscriptionModel = r.getString("WHISPER_MODEL", "")
	}

	if level := r.getString("CAPTION_REASONING_LEVEL", ""); level != "" {
		parsed, err := model.ParseReasoningLevel(level)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("CAPTION_REASONING_LEVEL: %w", err))
		} else {
			cfg.CaptionReasoningLevel = &parsed
		}
	}

	if err := cfg.validate(); err != nil {
		r.errs = append(r.errs, err)
	}
	if len(r.errs) > 0 {
		return Config{}, utils.WrapIfNotNil(errors.Join(r.errs...))
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive: %d", c.MaxUploadBytes))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be positive: %s", c.ProviderTimeout))
	}
	if c.RecordingSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("RECORDING_SAMPLE_RATE must be positive: %d", c.RecordingSampleRate))
	}
	if c.RecordingMaxLength <= 0 {
		errs = append(errs, fmt.Errorf("RECORDING_MAX_LENGTH must be positive: %s", c.RecordingMaxLength))
	}
	if c.CaptionMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("CAPTION_MAX_TOKENS must be positive: %d", c.CaptionMaxTokens))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// GeneratorOptions turns the caption settings into provider options.
func (c Config) GeneratorOptions() []model.GeneratorOption {
	opts := []model.GeneratorOption{
		model.WithMaxTokens(c.CaptionMaxTokens),
		model.WithTemperature(c.CaptionTemperature),
		model.WithIgnoreInvalidGeneratorOptions(true),
	}
	if c.CaptionModel != "" {
		opts = append(opts, model.WithModel(c.CaptionModel))
	}
	if c.CaptionURL != "" {
		opts = append(opts, model.WithURL(c.CaptionURL))
	}
	if c.CaptionAPIKey != "" {
		opts = append(opts, model.WithAuthToken(c.CaptionAPIKey))
	}
	if c.CaptionReasoningLevel != nil {
		opts = append(opts, model.WithReasoningLevel(*c.CaptionReasoningLevel))
	}
	return opts
}

func (c Config) AudioOptions() model.AudioOptions {
	return model.AudioOptions{
		IgnoreInvalidGeneratorOptions: true,
		URL:                           c.TranscriptionURL,
		AuthToken:                     c.TranscriptionAPIKey,
		Model:                         c.TranscriptionModel,
		Prompt:                        c.TranscriptionPrompt,
		Keywords:                      model.KeywordsFromWords(c.TranscriptionKeywords),
	}
}

// reader collects parse failures so Load can report all of them at once.
type reader struct {
	errs []error
}

func (r *reader) getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func (r *reader) getInt(key string, fallback int) int {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return value
}

func (r *reader) getFloat(key string, fallback float64) float64 {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return fallback
	}
	return value
}

func (r *reader) getBool(key string, fallback bool) bool {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return fallback
	}
	return value
}

func (r *reader) getDuration(key string, fallback time.Duration) time.Duration {
	raw := r.getString(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return value
}

func (r *reader) getList(key string) []string {
	raw := r.getString(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
