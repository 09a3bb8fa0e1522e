package server

import (
	"errors"
	"strings"

	"github.com/Nephrolytics-ai/caption-generator/pkg/caption"
	"github.com/Nephrolytics-ai/caption-generator/pkg/logging"
	"github.com/Nephrolytics-ai/caption-generator/pkg/recorder"
	"github.com/gofiber/fiber/v2"
)

const noFileSelectedMessage = "No file selected"

// requestError is a client mistake reported verbatim with a 400.
type requestError struct {
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &requestError{message: message}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status, message := classify(err)
	log := logging.NewLogger(c.UserContext())
	if status >= fiber.StatusInternalServerError {
		log.Errorf("error: %v", err)
	} else {
		log.Warnf("request rejected status=%d err=%v", status, err)
	}

	body := fiber.Map{"error": message}
	if strings.HasPrefix(c.Path(), "/api/recording") {
		body["success"] = false
	}
	return c.Status(status).JSON(body)
}

func classify(err error) (int, string) {
	var reqErr *requestError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &reqErr):
		return fiber.StatusBadRequest, reqErr.message
	case errors.Is(err, caption.ErrEmptyAudioPath):
		return fiber.StatusBadRequest, noFileSelectedMessage
	case errors.Is(err, caption.ErrUnsupportedAudioType):
		return fiber.StatusBadRequest, fileTypeNotAllowedMessage()
	case errors.Is(err, recorder.ErrAlreadyRecording), errors.Is(err, recorder.ErrNotRecording):
		return fiber.StatusConflict, capitalize(rootMessage(err))
	case errors.Is(err, recorder.ErrNoAudio), errors.Is(err, recorder.ErrInvalidRate):
		return fiber.StatusBadRequest, capitalize(rootMessage(err))
	case errors.Is(err, recorder.ErrRecordingTooLong):
		return fiber.StatusRequestEntityTooLarge, capitalize(rootMessage(err))
	case caption.IsProviderError(err):
		return fiber.StatusBadGateway, err.Error()
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

func fileTypeNotAllowedMessage() string {
	return "File type not allowed. Allowed types: " + strings.Join(caption.AllowedAudioExtensions(), ", ")
}

func rootMessage(err error) string {
	for _, sentinel := range []error{
		recorder.ErrAlreadyRecording,
		recorder.ErrNotRecording,
		recorder.ErrNoAudio,
		recorder.ErrInvalidRate,
		recorder.ErrRecordingTooLong,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func capitalize(message string) string {
	if message == "" {
		return message
	}
	return strings.ToUpper(message[:1]) + message[1:]
}
