package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Nephrolytics-ai/caption-generator/pkg/caption"
	"github.com/Nephrolytics-ai/caption-generator/pkg/recorder"
	"github.com/Nephrolytics-ai/caption-generator/pkg/uploads"
	"github.com/stretchr/testify/suite"
)

type stubService struct {
	transcription caption.Transcription
	transcribeErr error
	parsed        caption.ParsedCaption
	captionErr    error

	transcribedPaths []string
	fileExisted      bool
	captionInputs    []string
	hadDeadline      bool
}

func (s *stubService) Transcribe(ctx context.Context, audioPath string) (caption.Transcription, error) {
	s.transcribedPaths = append(s.transcribedPaths, audioPath)
	_, err := os.Stat(audioPath)
	s.fileExisted = err == nil
	_, s.hadDeadline = ctx.Deadline()
	if s.transcribeErr != nil {
		return caption.Transcription{}, s.transcribeErr
	}
	return s.transcription, nil
}

func (s *stubService) GenerateCaption(ctx context.Context, transcription string) (caption.ParsedCaption, error) {
	s.captionInputs = append(s.captionInputs, transcription)
	_, s.hadDeadline = ctx.Deadline()
	if s.captionErr != nil {
		return caption.ParsedCaption{}, s.captionErr
	}
	return s.parsed, nil
}

type ServerSuite struct {
	suite.Suite
	service  *stubService
	store    *uploads.Store
	recorder *recorder.Recorder
	server   *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	dir := filepath.Join(s.T().TempDir(), "uploads")
	store, err := uploads.NewStore(dir)
	s.Require().NoError(err)
	rec, err := recorder.New(dir, 16000)
	s.Require().NoError(err)

	s.service = &stubService{
		transcription: caption.Transcription{Text: "Mayor Ana Ruiz waves", Language: "English"},
		parsed: caption.ParsedCaption{
			FormattedCaption:   "Mayor Ana Ruiz waves to supporters.",
			MissingInformation: []string{"Date"},
		},
	}
	s.store = store
	s.recorder = rec

	server, err := New(Options{Service: s.service, Store: store, Recorder: rec})
	s.Require().NoError(err)
	s.server = server
}

func (s *ServerSuite) do(req *http.Request) (*http.Response, map[string]any) {
	resp, err := s.server.App().Test(req, -1)
	s.Require().NoError(err)
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	body := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func multipartRequest(path, field, filename string, content []byte) *http.Request {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		part, _ := writer.CreateFormFile(field, filename)
		_, _ = part.Write(content)
	} else {
		_ = writer.WriteField("other", "value")
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (s *ServerSuite) storedFiles() []os.DirEntry {
	entries, err := os.ReadDir(s.store.Dir())
	s.Require().NoError(err)
	return entries
}

func (s *ServerSuite) TestNewRequiresDependencies() {
	_, err := New(Options{})
	s.Error(err)
}

func (s *ServerSuite) TestHealth() {
	resp, body := s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", body["status"])
	s.NotEmpty(resp.Header.Get(headerRequestID))
}

func (s *ServerSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(headerRequestID, "req-123")

	resp, _ := s.do(req)

	s.Equal("req-123", resp.Header.Get(headerRequestID))
}

func (s *ServerSuite) TestTranscribe() {
	resp, body := s.do(multipartRequest("/api/transcribe", "audio_file", "notes.m4a", []byte("audio")))

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Mayor Ana Ruiz waves", body["transcription"])
	s.Equal("English", body["language"])
	s.Require().Len(s.service.transcribedPaths, 1)
	s.True(strings.HasSuffix(s.service.transcribedPaths[0], "_notes.m4a"))
	s.True(s.service.fileExisted)
	s.True(s.service.hadDeadline)
	s.Empty(s.storedFiles())
}

func (s *ServerSuite) TestTranscribeValidation() {
	resp, body := s.do(multipartRequest("/api/transcribe", "", "", nil))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("No audio file provided", body["error"])

	resp, body = s.do(multipartRequest("/api/transcribe", "audio_file", "notes.txt", []byte("x")))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("File type not allowed. Allowed types: wav, mp3, ogg, m4a, flac, webm", body["error"])

	s.Empty(s.service.transcribedPaths)
}

func (s *ServerSuite) TestServiceValidationErrorsHaveTheirOwnMessages() {
	s.service.transcribeErr = &caption.TranscriptionError{Provider: "whisper", Err: caption.ErrEmptyAudioPath}
	resp, body := s.do(multipartRequest("/api/transcribe", "audio_file", "clip.wav", []byte("audio")))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("No file selected", body["error"])

	s.service.transcribeErr = &caption.TranscriptionError{Provider: "whisper", Err: caption.ErrUnsupportedAudioType}
	resp, body = s.do(multipartRequest("/api/transcribe", "audio_file", "clip.wav", []byte("audio")))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("File type not allowed. Allowed types: wav, mp3, ogg, m4a, flac, webm", body["error"])
}

func (s *ServerSuite) TestTranscribeProviderFailureIsBadGatewayAndCleansUp() {
	s.service.transcribeErr = &caption.TranscriptionError{Provider: "whisper", Err: errors.New("whisper CLI failed")}

	resp, body := s.do(multipartRequest("/api/transcribe", "audio_file", "notes.wav", []byte("audio")))

	s.Equal(http.StatusBadGateway, resp.StatusCode)
	s.Contains(body["error"], "whisper CLI failed")
	s.Empty(s.storedFiles())
}

func (s *ServerSuite) TestUploadAudio() {
	resp, body := s.do(multipartRequest("/api/upload-audio", "audio_blob", "blob", []byte("audio")))

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Mayor Ana Ruiz waves", body["transcription"])
	s.Require().Len(s.service.transcribedPaths, 1)
	s.Equal(".wav", filepath.Ext(s.service.transcribedPaths[0]))
	s.Empty(s.storedFiles())
}

func (s *ServerSuite) TestUploadAudioMissingBlob() {
	resp, body := s.do(multipartRequest("/api/upload-audio", "", "", nil))

	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("No audio blob provided", body["error"])
}

func (s *ServerSuite) TestGenerateCaption() {
	resp, body := s.do(jsonRequest(http.MethodPost, "/api/generate-caption", `{"transcription":"mayor at the rally"}`))

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Mayor Ana Ruiz waves to supporters.", body["formatted_caption"])
	s.Equal([]any{"Date"}, body["missing_information"])
	s.Equal([]string{"mayor at the rally"}, s.service.captionInputs)
	s.True(s.service.hadDeadline)
}

func (s *ServerSuite) TestGenerateCaptionEmptyResultIsStillOK() {
	s.service.parsed = caption.ParsedCaption{}

	resp, body := s.do(jsonRequest(http.MethodPost, "/api/generate-caption", `{"transcription":""}`))

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("", body["formatted_caption"])
	s.Equal([]any{}, body["missing_information"])
	s.Equal([]string{""}, s.service.captionInputs)
}

func (s *ServerSuite) TestGenerateCaptionValidation() {
	for _, payload := range []string{`{}`, `not json`, ``, `{"text":"x"}`} {
		resp, body := s.do(jsonRequest(http.MethodPost, "/api/generate-caption", payload))
		s.Equal(http.StatusBadRequest, resp.StatusCode, payload)
		s.Equal("No transcription provided", body["error"], payload)
	}
	s.Empty(s.service.captionInputs)
}

func (s *ServerSuite) TestGenerateCaptionProviderFailure() {
	s.service.captionErr = &caption.GenerationError{Provider: "anthropic", Err: errors.New("overloaded")}

	resp, body := s.do(jsonRequest(http.MethodPost, "/api/generate-caption", `{"transcription":"x"}`))

	s.Equal(http.StatusBadGateway, resp.StatusCode)
	s.Equal("caption generation failed (anthropic): overloaded", body["error"])
}

func (s *ServerSuite) TestUnexpectedErrorIsInternal() {
	s.service.captionErr = errors.New("disk on fire")

	resp, body := s.do(jsonRequest(http.MethodPost, "/api/generate-caption", `{"transcription":"x"}`))

	s.Equal(http.StatusInternalServerError, resp.StatusCode)
	s.Equal("Internal server error", body["error"])
}

func (s *ServerSuite) TestCaptionSchema() {
	resp, body := s.do(httptest.NewRequest(http.MethodGet, "/api/schema/caption", nil))

	s.Equal(http.StatusOK, resp.StatusCode)
	properties, ok := body["properties"].(map[string]any)
	s.Require().True(ok, body)
	s.Contains(properties, "formatted_caption")
	s.Contains(properties, "missing_information")
}

func (s *ServerSuite) TestRecordingLifecycle() {
	resp, body := s.do(httptest.NewRequest(http.MethodGet, "/api/recording/status", nil))
	s.Equal(false, body["recording"])

	resp, body = s.do(jsonRequest(http.MethodPost, "/api/recording/start", `{"sample_rate":22050}`))
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, body["success"])

	resp, body = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/start", nil))
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal(false, body["success"])
	s.Equal("Already recording", body["error"])

	chunk := make([]byte, 8)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(chunk[2*i:], uint16(int16(100*i)))
	}
	resp, _ = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/chunk", bytes.NewReader(chunk)))
	s.Equal(http.StatusNoContent, resp.StatusCode)

	_, body = s.do(httptest.NewRequest(http.MethodGet, "/api/recording/status", nil))
	s.Equal(true, body["recording"])

	resp, body = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/stop", nil))
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, body["success"])
	s.Equal("Mayor Ana Ruiz waves", body["transcription"])
	s.Require().Len(s.service.transcribedPaths, 1)
	s.Equal(".wav", filepath.Ext(s.service.transcribedPaths[0]))
	s.True(s.service.fileExisted)
	s.Empty(s.storedFiles())
	s.False(s.recorder.IsRecording())
}

func (s *ServerSuite) TestRecordingStateErrors() {
	resp, body := s.do(httptest.NewRequest(http.MethodPost, "/api/recording/chunk", bytes.NewReader([]byte{1, 0})))
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("Not currently recording", body["error"])

	resp, _ = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/stop", nil))
	s.Equal(http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/start", nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp, body = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/stop", nil))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("No audio data recorded", body["error"])
	s.Empty(s.service.transcribedPaths)
}

func (s *ServerSuite) TestRecordingPastMaximumLengthIsTooLarge() {
	rec, err := recorder.New(s.store.Dir(), 1000, recorder.WithMaxDuration(10*time.Millisecond))
	s.Require().NoError(err)
	s.recorder = rec
	s.server, err = New(Options{Service: s.service, Store: s.store, Recorder: rec})
	s.Require().NoError(err)

	resp, _ := s.do(httptest.NewRequest(http.MethodPost, "/api/recording/start", nil))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/chunk", bytes.NewReader(make([]byte, 8))))
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp, body := s.do(httptest.NewRequest(http.MethodPost, "/api/recording/chunk", bytes.NewReader(make([]byte, 16))))
	s.Equal(http.StatusRequestEntityTooLarge, resp.StatusCode)
	s.Equal(false, body["success"])
	s.Equal("Recording exceeds the maximum length", body["error"])
	s.True(rec.IsRecording())

	resp, body = s.do(httptest.NewRequest(http.MethodPost, "/api/recording/stop", nil))
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, body["success"])
}

func (s *ServerSuite) TestRecordingStartRejectsBadBody() {
	resp, body := s.do(jsonRequest(http.MethodPost, "/api/recording/start", `{"sample_rate":"fast"}`))

	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid recording options", body["error"])
	s.False(s.recorder.IsRecording())
}

func (s *ServerSuite) TestStaticFrontend() {
	staticDir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>Captions</h1>"), 0o644))
	server, err := New(Options{Service: s.service, Store: s.store, Recorder: s.recorder, StaticDir: staticDir})
	s.Require().NoError(err)

	resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)

	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	s.Contains(string(raw), "Captions")
}

func (s *ServerSuite) TestUnknownRouteIsNotFound() {
	resp, body := s.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.NotEmpty(body["error"])
}
