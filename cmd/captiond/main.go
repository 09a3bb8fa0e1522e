// Command captiond serves the Reuters caption generator over HTTP, or as an
// MCP tool server on stdio with -mcp.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/caption"
	"github.com/Nephrolytics-ai/caption-generator/pkg/config"
	"github.com/Nephrolytics-ai/caption-generator/pkg/language"
	"github.com/Nephrolytics-ai/caption-generator/pkg/llms"
	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/mcp"
	"github.com/Nephrolytics-ai/caption-generator/pkg/recorder"
	"github.com/Nephrolytics-ai/caption-generator/pkg/server"
	"github.com/Nephrolytics-ai/caption-generator/pkg/uploads"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	var (
		mcpMode bool
		envFile string
	)
	flag.BoolVar(&mcpMode, "mcp", false, "Serve MCP tools on stdio instead of HTTP")
	flag.StringVar(&envFile, "env", "", "Extra .env file to load before ./.env and ~/.env")
	flag.Parse()

	if err := run(mcpMode, envFile); err != nil {
		fmt.Fprintf(os.Stderr, "captiond: %v\n", err)
		os.Exit(1)
	}
}

func run(mcpMode bool, envFile string) error {
	cfg, err := config.Load(envFiles(envFile)...)
	if err != nil {
		return err
	}

	logLevel := cfg.LogLevel
	if cfg.Debug {
		logLevel = "debug"
	}
	if err := logging.Configure(logLevel, cfg.LogFormat); err != nil {
		return err
	}

	service, err := buildService(cfg)
	if err != nil {
		return err
	}

	if mcpMode {
		logging.NewLogger(context.Background()).Infof("serving MCP tools on stdio")
		return mcp.ServeStdio(mcp.NewServer(service, version, cfg.ProviderTimeout))
	}
	return serveHTTP(cfg, service)
}

func envFiles(extra string) []string {
	files := []string{}
	if extra != "" {
		files = append(files, extra)
	}
	files = append(files, ".env")
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".env"))
	}
	return files
}

func buildService(cfg config.Config) (*caption.Service, error) {
	newGenerator, err := llms.ContentGeneratorFactory(cfg.CaptionProvider)
	if err != nil {
		return nil, err
	}
	newTranscriber, err := llms.AudioTranscriptionFactory(cfg.TranscriptionProvider)
	if err != nil {
		return nil, err
	}

	serviceCfg := caption.ServiceConfig{
		TranscriptionProvider: cfg.TranscriptionProvider,
		NewTranscriber:        newTranscriber,
		AudioOptions:          cfg.AudioOptions(),
		CaptionProvider:       cfg.CaptionProvider,
		NewGenerator:          newGenerator,
		GeneratorOptions:      cfg.GeneratorOptions(),
	}
	if cfg.DetectLanguage {
		serviceCfg.Detector = language.New()
	}

	logging.NewLogger(context.Background()).Infof(
		"caption service ready caption_provider=%q transcription_provider=%q detect_language=%t",
		cfg.CaptionProvider,
		cfg.TranscriptionProvider,
		cfg.DetectLanguage,
	)
	return caption.NewService(serviceCfg)
}

func serveHTTP(cfg config.Config, service *caption.Service) error {
	log := logging.NewLogger(context.Background())

	store, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		return err
	}
	rec, err := recorder.New(store.Dir(), cfg.RecordingSampleRate, recorder.WithMaxDuration(cfg.RecordingMaxLength))
	if err != nil {
		return err
	}
	sweeper, err := uploads.NewSweeper(store, cfg.SweepSchedule, cfg.SweepMaxAge)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Service:         service,
		Store:           store,
		Recorder:        rec,
		StaticDir:       cfg.StaticDir,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ProviderTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		return err
	}

	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen(cfg.Addr())
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
