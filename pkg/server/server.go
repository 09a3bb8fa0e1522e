// Package server exposes the caption service over HTTP.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/caption"
	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/recorder"
	"github.com/Nephrolytics-ai/caption-generator/pkg/uploads"
	"github.com/Nephrolytics-ai/caption-generator/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

const (
	headerRequestID        = "X-Request-ID"
	defaultProviderTimeout = 2 * time.Minute
	defaultMaxUploadBytes  = 16 << 20
)

// CaptionService is the part of caption.Service the handlers call.
type CaptionService interface {
	Transcribe(ctx context.Context, audioPath string) (caption.Transcription, error)
	GenerateCaption(ctx context.Context, transcription string) (caption.ParsedCaption, error)
}

type Options struct {
	Service  CaptionService
	Store    *uploads.Store
	Recorder *recorder.Recorder
	// StaticDir, when set, is served at "/".
	StaticDir       string
	MaxUploadBytes  int
	ProviderTimeout time.Duration
}

type Server struct {
	app             *fiber.App
	service         CaptionService
	store           *uploads.Store
	recorder        *recorder.Recorder
	providerTimeout time.Duration
	captionSchema   *jsonschema.Schema
}

func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, utils.WrapIfNotNil(errors.New("caption service is required"))
	}
	if opts.Store == nil {
		return nil, utils.WrapIfNotNil(errors.New("upload store is required"))
	}
	if opts.Recorder == nil {
		return nil, utils.WrapIfNotNil(errors.New("recorder is required"))
	}

	maxUploadBytes := opts.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	providerTimeout := opts.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = defaultProviderTimeout
	}

	s := &Server{
		service:         opts.Service,
		store:           opts.Store,
		recorder:        opts.Recorder,
		providerTimeout: providerTimeout,
		captionSchema:   (&jsonschema.Reflector{ExpandedStruct: true}).Reflect(&caption.ParsedCaption{}),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "caption-generator",
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(requestContext)
	s.app.Use(recover.New())
	s.app.Use(cors.New())

	s.routes()
	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		s.app.Static("/", dir)
	}
	return s, nil
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.health)
	api.Post("/transcribe", s.transcribe)
	api.Post("/upload-audio", s.uploadAudio)
	api.Post("/generate-caption", s.generateCaption)
	api.Get("/schema/caption", s.schema)

	recording := api.Group("/recording")
	recording.Post("/start", s.startRecording)
	recording.Post("/chunk", s.recordingChunk)
	recording.Post("/stop", s.stopRecording)
	recording.Get("/status", s.recordingStatus)
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	logging.NewLogger(context.Background()).Infof("listening addr=%q", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requestContext tags the request with an id, stores it on the user context
// for the logger, and logs the outcome.
func requestContext(c *fiber.Ctx) error {
	start := time.Now()
	requestID := strings.TrimSpace(c.Get(headerRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(headerRequestID, requestID)

	ctx := logging.ContextWithRequestID(c.UserContext(), requestID)
	c.SetUserContext(ctx)

	err := c.Next()
	if err != nil {
		if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	logging.NewLogger(ctx).Infof(
		"http method=%s path=%q status=%d latency_ms=%d",
		c.Method(),
		c.Path(),
		c.Response().StatusCode(),
		time.Since(start).Milliseconds(),
	)
	return nil
}
