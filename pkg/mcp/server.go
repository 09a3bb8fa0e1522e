// Package mcp exposes caption generation as Model Context Protocol tools so
// an assistant can format captions without the HTTP frontend.
package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/caption"
	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName = "caption-generator"

	ToolGenerateCaption      = "generate_caption"
	ToolTranscribeAudio      = "transcribe_audio"
	ToolParseCaptionResponse = "parse_caption_response"
)

type CaptionService interface {
	Transcribe(ctx context.Context, audioPath string) (caption.Transcription, error)
	GenerateCaption(ctx context.Context, transcription string) (caption.ParsedCaption, error)
}

type toolHandlers struct {
	service CaptionService
	timeout time.Duration
}

// NewServer registers the caption tools. A positive timeout bounds each
// provider call.
func NewServer(service CaptionService, version string, timeout time.Duration) *server.MCPServer {
	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))
	h := &toolHandlers{service: service, timeout: timeout}

	s.AddTool(mcp.NewTool(ToolGenerateCaption,
		mcp.WithDescription("Format a photographer's spoken description as a Reuters photo caption and list the details still missing."),
		mcp.WithString("transcription",
			mcp.Required(),
			mcp.Description("Transcribed description of the photo"),
		),
	), h.generateCaption)

	s.AddTool(mcp.NewTool(ToolTranscribeAudio,
		mcp.WithDescription("Transcribe a local audio file (wav, mp3, ogg, m4a, flac, webm)."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the audio file on the server"),
		),
	), h.transcribeAudio)

	s.AddTool(mcp.NewTool(ToolParseCaptionResponse,
		mcp.WithDescription("Split a raw caption formatter reply into the caption and the missing information list."),
		mcp.WithString("response",
			mcp.Required(),
			mcp.Description("Raw model reply"),
		),
	), h.parseCaptionResponse)

	return s
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (h *toolHandlers) generateCaption(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transcription, err := request.RequireString("transcription")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	parsed, err := h.service.GenerateCaption(ctx, transcription)
	if err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(parsed)
}

func (h *toolHandlers) transcribeAudio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	result, err := h.service.Transcribe(ctx, path)
	if err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (h *toolHandlers) parseCaptionResponse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("response")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(caption.ParseResponse(raw))
}

func (h *toolHandlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func jsonResult(value any) (*mcp.CallToolResult, error) {
	bits, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(bits)), nil
}
