package sources

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

// Google Cloud Text-to-Speech v1 client.

const (
	speechService = "Google Text-to-Speech API"

	// MaxSpeechChars approximates the API's 5000-byte input limit.
	MaxSpeechChars = 5000

	// DefaultSpeechLanguage is used when a request names no language.
	DefaultSpeechLanguage = "en-US"
)

// ErrEmptyText is returned by Synthesize for blank input.
var ErrEmptyText = errors.New("missing or invalid 'text' parameter")

type synthesizeReq struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResp struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Speech is synthesized MP3 audio.
type Speech struct {
	AudioBase64 string
	Size        int // decoded bytes
}

// DataURI renders the audio as a data: URI playable by a browser.
func (s Speech) DataURI() string {
	return "data:audio/mpeg;base64," + s.AudioBase64
}

// Synthesizer turns text into speech with a neutral voice for the language.
type Synthesizer struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSynthesizer creates a text-to-speech client. An empty apiKey makes every
// non-blank request fail with a ConfigError.
func NewSynthesizer(apiKey, endpoint string, client *http.Client) *Synthesizer {
	return &Synthesizer{apiKey: apiKey, endpoint: endpoint, client: client}
}

// NewSynthesizerFromConfig builds a synthesizer from engine configuration.
func NewSynthesizerFromConfig(c *engine.Config) *Synthesizer {
	client := c.SpeechClient
	if client == nil {
		client = engine.NewHTTPClient(c.SpeechTimeout)
	}
	return NewSynthesizer(c.SpeechAPIKey, c.SpeechAPIURL, client)
}

// Synthesize returns MP3 audio for text. Checks run in order: blank text
// (ErrEmptyText), missing credential (*engine.ConfigError), length over
// MaxSpeechChars (*engine.TextTooLongError).
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) (Speech, error) {
	if strings.TrimSpace(text) == "" {
		return Speech{}, ErrEmptyText
	}
	if s.apiKey == "" {
		return Speech{}, &engine.ConfigError{
			Setting: "GOOGLE_TTS_API_KEY",
			Message: "Google Cloud API key is not configured. Please set GOOGLE_TTS_API_KEY or GOOGLE_API_KEY environment variable.",
		}
	}
	if n := utf8.RuneCountInString(text); n > MaxSpeechChars {
		return Speech{}, &engine.TextTooLongError{Length: n, Max: MaxSpeechChars}
	}
	if strings.TrimSpace(language) == "" {
		language = DefaultSpeechLanguage
	}

	engine.IncrSpeechCalls()
	speech, err := s.synthesize(ctx, text, strings.TrimSpace(language))
	if err != nil {
		engine.IncrSpeechErrors()
		return Speech{}, err
	}
	return speech, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, text, language string) (Speech, error) {
	target, err := withAPIKey(s.endpoint, s.apiKey)
	if err != nil {
		return Speech{}, err
	}

	var payload synthesizeReq
	payload.Input.Text = text
	payload.Voice.LanguageCode = language
	payload.Voice.SSMLGender = "NEUTRAL"
	payload.AudioConfig.AudioEncoding = "MP3"
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return Speech{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(reqBody))
	if err != nil {
		return Speech{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", engine.UserAgentBot)

	resp, err := s.client.Do(req)
	if err != nil {
		return Speech{}, &engine.NetworkError{Op: "text-to-speech", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return Speech{}, &engine.NetworkError{Op: "read text-to-speech response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Speech{}, &engine.UpstreamHTTPError{
			Service:    speechService,
			StatusCode: resp.StatusCode,
			Body:       engine.Snippet(body, 512),
		}
	}

	var out synthesizeResp
	if err := json.Unmarshal(body, &out); err != nil {
		return Speech{}, fmt.Errorf("decode text-to-speech response: %w", err)
	}
	if out.Error != nil {
		return Speech{}, &engine.UpstreamAPIError{Service: speechService, Message: out.Error.Message}
	}
	if out.AudioContent == "" {
		return Speech{}, &engine.NotFoundError{What: "audio content"}
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return Speech{}, fmt.Errorf("decode audio content: %w", err)
	}
	return Speech{AudioBase64: out.AudioContent, Size: len(audio)}, nil
}
