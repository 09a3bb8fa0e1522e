package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/caption"
	"github.com/gofiber/fiber/v2"
)

type transcriptionResponse struct {
	Transcription string `json:"transcription"`
	Language      string `json:"language,omitempty"`
}

type recordingStopResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
	Language      string `json:"language,omitempty"`
}

type generateCaptionRequest struct {
	Transcription *string `json:"transcription"`
}

type startRecordingRequest struct {
	SampleRate int `json:"sample_rate"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) schema(c *fiber.Ctx) error {
	return c.JSON(s.captionSchema)
}

func (s *Server) transcribe(c *fiber.Ctx) error {
	file, err := c.FormFile("audio_file")
	if err != nil {
		return badRequest("No audio file provided")
	}
	if file.Filename == "" {
		return badRequest(noFileSelectedMessage)
	}
	if !caption.IsAllowedAudioFile(file.Filename) {
		return badRequest(fileTypeNotAllowedMessage())
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	ctx := c.UserContext()
	path, err := s.store.Save(ctx, file.Filename, src)
	if err != nil {
		return err
	}
	defer s.store.Remove(ctx, path)

	return s.transcribeStored(c, path)
}

// uploadAudio accepts a browser-recorded blob. The blob has no trustworthy
// name, so it is always stored as .wav.
func (s *Server) uploadAudio(c *fiber.Ctx) error {
	file, err := c.FormFile("audio_blob")
	if err != nil {
		return badRequest("No audio blob provided")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	ctx := c.UserContext()
	path, err := s.store.Save(ctx, "recording.wav", src)
	if err != nil {
		return err
	}
	defer s.store.Remove(ctx, path)

	return s.transcribeStored(c, path)
}

func (s *Server) transcribeStored(c *fiber.Ctx, path string) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.providerTimeout)
	defer cancel()

	result, err := s.service.Transcribe(ctx, path)
	if err != nil {
		return err
	}
	return c.JSON(transcriptionResponse{Transcription: result.Text, Language: result.Language})
}

func (s *Server) generateCaption(c *fiber.Ctx) error {
	var req generateCaptionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Transcription == nil {
		return badRequest("No transcription provided")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.providerTimeout)
	defer cancel()

	parsed, err := s.service.GenerateCaption(ctx, *req.Transcription)
	if err != nil {
		return err
	}
	if parsed.MissingInformation == nil {
		parsed.MissingInformation = []string{}
	}
	return c.JSON(parsed)
}

func (s *Server) startRecording(c *fiber.Ctx) error {
	var req startRecordingRequest
	if body := strings.TrimSpace(string(c.Body())); body != "" {
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return badRequest("Invalid recording options")
		}
	}

	if err := s.recorder.Start(c.UserContext(), req.SampleRate); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) recordingChunk(c *fiber.Ctx) error {
	if _, err := s.recorder.Write(c.Body()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) stopRecording(c *fiber.Ctx) error {
	ctx := c.UserContext()
	path, err := s.recorder.Stop(ctx)
	if err != nil {
		return err
	}
	defer s.store.Remove(ctx, path)

	transcribeCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	result, err := s.service.Transcribe(transcribeCtx, path)
	if err != nil {
		return err
	}
	return c.JSON(recordingStopResponse{
		Success:       true,
		Transcription: result.Text,
		Language:      result.Language,
	})
}

func (s *Server) recordingStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"recording": s.recorder.IsRecording()})
}
