package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Nephrolytics-ai/caption-generator/pkg/llms/internal/llmcall"
	"github.com/Nephrolytics-ai/caption-generator/pkg/model"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/suite"
)

type CompatSuite struct {
	suite.Suite
	server  *httptest.Server
	request openai.ChatCompletionRequest
	auth    string
	status  int
	form    map[string]string
}

func TestCompatSuite(t *testing.T) {
	suite.Run(t, new(CompatSuite))
}

func (s *CompatSuite) SetupTest() {
	s.status = http.StatusOK
	s.form = map[string]string{}
	s.T().Setenv("OPENAI_COMPAT_MODEL", "")
	s.T().Setenv("OPENAI_COMPAT_TRANSCRIPTION_MODEL", "")
	s.T().Setenv(envCompatBaseURL, "")
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.auth = r.Header.Get("Authorization")
		w.Header().Set("content-type", "application/json")
		switch r.URL.Path {
		case "/v1/chat/completions":
			bits, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(bits, &s.request)
			w.WriteHeader(s.status)
			if s.status != http.StatusOK {
				_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"chatcmpl-1","model":"claude-sonnet-4-5",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"REUTERS FORMATTED CAPTION\nA caption"}}],
				"usage":{"prompt_tokens":11,"completion_tokens":4,"total_tokens":15}}`))
		case "/v1/audio/transcriptions":
			s.Require().NoError(r.ParseMultipartForm(1 << 20))
			for _, field := range []string{"model", "prompt", "response_format"} {
				s.form[field] = r.FormValue(field)
			}
			if s.form["response_format"] == "verbose_json" {
				_, _ = w.Write([]byte(`{"task":"transcribe","language":"english","duration":2.5,"text":" A crowd gathers in Accra "}`))
				return
			}
			_, _ = w.Write([]byte(`{"text":"A crowd gathers in Accra"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func (s *CompatSuite) TearDownTest() {
	s.server.Close()
}

func (s *CompatSuite) TestChatCompletion() {
	generator, err := NewStringContentGenerator(
		"Spoken description: crowd",
		model.WithURL(s.server.URL+"/v1/"),
		model.WithAuthToken("sk-proxy"),
		model.WithModel("claude-sonnet-4-5"),
		model.WithTemperature(0.1),
		model.WithMaxTokens(1000),
	)
	s.Require().NoError(err)
	generator.AddPromptContext(context.Background(), model.ContextMessageTypeSystem, "You are a formatter.")

	text, meta, err := generator.Generate(context.Background())

	s.Require().NoError(err)
	s.Equal("REUTERS FORMATTED CAPTION\nA caption", text)
	s.Equal("Bearer sk-proxy", s.auth)
	s.Equal("claude-sonnet-4-5", s.request.Model)
	s.Equal(1000, s.request.MaxTokens)
	s.InDelta(0.1, s.request.Temperature, 1e-6)
	s.Require().Len(s.request.Messages, 2)
	s.Equal(openai.ChatMessageRoleSystem, s.request.Messages[0].Role)
	s.Equal("Spoken description: crowd", s.request.Messages[1].Content)
	s.Equal("15", meta[model.MetadataKeyTotalTokens])
	s.Equal("stop", meta[model.MetadataKeyResponseStatus])
	s.Equal("openai_compat", meta[model.MetadataKeyProvider])
	s.Equal("chatcmpl-1", meta[model.MetadataKeyResponseID])
}

func (s *CompatSuite) TestChatCompletionAPIError() {
	s.status = http.StatusNotFound
	generator, err := NewStringContentGenerator("prompt", model.WithURL(s.server.URL+"/v1"), model.WithAuthToken("sk-proxy"))
	s.Require().NoError(err)

	_, _, err = generator.Generate(context.Background())

	s.Require().Error(err)
	s.Contains(err.Error(), "model not found")
}

func (s *CompatSuite) TestRequiresAuthToken() {
	s.T().Setenv(envCompatAPIKey, "")

	_, err := NewStringContentGenerator("prompt")
	s.Require().Error(err)
	s.Contains(err.Error(), "auth token is required")
}

func (s *CompatSuite) writeClip() string {
	audioPath := filepath.Join(s.T().TempDir(), "clip.mp3")
	s.Require().NoError(os.WriteFile(audioPath, []byte("ID3"), 0o600))
	return audioPath
}

func (s *CompatSuite) TestWhisperTranscriptionRecordsLanguage() {
	generator, err := NewAudioTranscriptionGenerator(s.writeClip(), model.AudioOptions{
		URL:       s.server.URL + "/v1",
		AuthToken: "sk-proxy",
		Keywords:  model.KeywordsFromWords([]string{"Accra"}),
	})
	s.Require().NoError(err)

	text, meta, err := generator.Generate(context.Background())

	s.Require().NoError(err)
	s.Equal("A crowd gathers in Accra", text)
	s.Equal(openai.Whisper1, s.form["model"])
	s.Equal("verbose_json", s.form["response_format"])
	s.Equal("Names and places: Accra.", s.form["prompt"])
	s.Equal(openai.Whisper1, meta[model.MetadataKeyModel])
	s.Equal("english", meta[model.MetadataKeyLanguage])
	s.Equal("verbose_json", meta[model.MetadataKeyResponseFormat])
}

func (s *CompatSuite) TestGatewayModelTranscriptionUsesJSON() {
	generator, err := NewAudioTranscriptionGenerator(s.writeClip(), model.AudioOptions{
		URL:       s.server.URL + "/v1",
		AuthToken: "sk-proxy",
		Model:     "gpt-4o-transcribe",
		Prompt:    "Reuters desk dictation.",
	})
	s.Require().NoError(err)

	_, meta, err := generator.Generate(context.Background())

	s.Require().NoError(err)
	s.Equal("json", s.form["response_format"])
	s.Equal("Reuters desk dictation.", s.form["prompt"])
	s.NotContains(meta, model.MetadataKeyLanguage)
}

func (s *CompatSuite) TestBuildChatRequestWithoutSystem() {
	request := buildChatRequest(llmcall.Request{
		Model:     "m",
		MaxTokens: 1000,
		Messages:  []llmcall.Message{{Role: llmcall.RoleAssistant, Content: "draft"}, {Role: llmcall.RoleUser, Content: "p"}},
	})

	s.Require().Len(request.Messages, 2)
	s.Equal(openai.ChatMessageRoleAssistant, request.Messages[0].Role)
	s.Zero(request.Temperature)
}
