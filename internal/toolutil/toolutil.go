// Package toolutil provides response shapes and input helpers shared by the
// HTTP API and the MCP tools.
package toolutil

import (
	"strings"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

// DefaultTargetLanguage is used when a translate request names no target.
const DefaultTargetLanguage = "vi"

// NormTargetLang normalises a target language field: empty string → "vi".
func NormTargetLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return DefaultTargetLanguage
	}
	return lang
}

// CaptionsResponse is the captions envelope. Failures still carry an empty
// (non-null) sentences list.
type CaptionsResponse struct {
	Success   bool                        `json:"success"`
	Sentences []engine.NormalizedSentence `json:"sentences"`
	Error     string                      `json:"error,omitempty"`
	VideoID   string                      `json:"videoId,omitempty"`
	Count     int                         `json:"count,omitempty"`
}

// CaptionsEnvelope builds the captions response for a fetch result.
func CaptionsEnvelope(sentences []engine.NormalizedSentence, err error) CaptionsResponse {
	if err != nil {
		return CaptionsResponse{Sentences: []engine.NormalizedSentence{}, Error: err.Error()}
	}
	if sentences == nil {
		sentences = []engine.NormalizedSentence{}
	}
	return CaptionsResponse{Success: true, Sentences: sentences}
}

// TranslateResponse is the translate success payload.
type TranslateResponse struct {
	Translation string `json:"translation"`
}

// Speech error codes reported in SpeechResponse.Error.
const (
	SpeechKeyNotConfigured = "TTS_API_KEY_NOT_CONFIGURED"
	SpeechGenerationFailed = "TTS_GENERATION_FAILED"
)

// SpeechFallback points the client at browser speech synthesis.
type SpeechFallback struct {
	Type         string `json:"type"`
	Instructions string `json:"instructions"`
}

// SpeechResponse is the text-to-speech payload. Audio is an MP3 data URI.
type SpeechResponse struct {
	Success  bool            `json:"success"`
	Audio    string          `json:"audio,omitempty"`
	Format   string          `json:"format,omitempty"`
	Length   int             `json:"length,omitempty"`
	Error    string          `json:"error,omitempty"`
	Message  string          `json:"message,omitempty"`
	Fallback *SpeechFallback `json:"fallback,omitempty"`
}

// SpeechAudio is the success response for dataURI holding size bytes of MP3.
func SpeechAudio(dataURI string, size int) SpeechResponse {
	return SpeechResponse{Success: true, Audio: dataURI, Format: "mp3", Length: size}
}

// SpeechUnconfigured tells the client to fall back to the Web Speech API.
func SpeechUnconfigured(message string) SpeechResponse {
	return SpeechResponse{
		Error:   SpeechKeyNotConfigured,
		Message: message,
		Fallback: &SpeechFallback{
			Type:         "web_speech_api",
			Instructions: "You can use the browser's Web Speech API (SpeechSynthesis) as a free alternative.",
		},
	}
}

// SpeechFailed reports a synthesis failure.
func SpeechFailed(message string) SpeechResponse {
	return SpeechResponse{Error: SpeechGenerationFailed, Message: message}
}
