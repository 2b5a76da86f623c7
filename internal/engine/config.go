package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
)

// DefaultCaptionLanguages lists English regional variants before Vietnamese.
var DefaultCaptionLanguages = []string{"en", "en-US", "en-GB", "vi"}

// Config holds all engine configuration, injected from main.
type Config struct {
	Port                 string
	YouTubeAPIKey        string
	YouTubeAPIBase       string
	CaptionLanguages     []string
	TranscriptHTTPProxy  string
	TranscriptHTTPSProxy string
	TranslateAPIKey      string
	TranslateAPIURL      string
	TranslateRPS         float64
	SpeechAPIKey         string
	SpeechAPIURL         string
	HTTPTimeout          time.Duration
	TranslateTimeout     time.Duration
	SpeechTimeout        time.Duration
	MCPPort              string       // empty = MCP surface disabled
	HTTPClient           *http.Client // primary caption API; nil = built from HTTPTimeout
	TranscriptClient     *http.Client // fallback transcript source; nil = built with proxies
	TranslateClient      *http.Client // translation API; nil = built from TranslateTimeout
	SpeechClient         *http.Client // text-to-speech API; nil = built from SpeechTimeout
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, servers).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}

// youtubeKeyVars are checked in order; the first non-empty value wins.
var youtubeKeyVars = []string{"YOUTUBE_API_KEY", "YOUTUBE_DATA_API_KEY", "GOOGLE_API_KEY"}

var speechKeyVars = []string{"GOOGLE_TTS_API_KEY", "GOOGLE_API_KEY"}

// ConfigFromEnv reads the configuration from the process environment.
// Shared by the server binary and the captionctl CLI.
func ConfigFromEnv() Config {
	return Config{
		Port:                 env.Str("PORT", "5000"),
		YouTubeAPIKey:        firstEnv(youtubeKeyVars...),
		YouTubeAPIBase:       env.Str("YOUTUBE_API_BASE", "https://www.googleapis.com/youtube/v3"),
		CaptionLanguages:     env.List("CAPTION_LANGUAGES", "en,en-US,en-GB,vi"),
		TranscriptHTTPProxy:  env.Str("TRANSCRIPT_HTTP_PROXY", ""),
		TranscriptHTTPSProxy: env.Str("TRANSCRIPT_HTTPS_PROXY", ""),
		TranslateAPIKey:      env.Str("GOOGLE_TRANSLATE_API_KEY", ""),
		TranslateAPIURL:      env.Str("GOOGLE_TRANSLATE_API_URL", "https://translation.googleapis.com/language/translate/v2"),
		TranslateRPS:         env.Float("TRANSLATE_RPS", 0),
		SpeechAPIKey:         firstEnv(speechKeyVars...),
		SpeechAPIURL:         env.Str("GOOGLE_TTS_API_URL", "https://texttospeech.googleapis.com/v1/text:synthesize"),
		HTTPTimeout:          env.Duration("HTTP_TIMEOUT", 15*time.Second),
		TranslateTimeout:     env.Duration("TRANSLATE_TIMEOUT", 10*time.Second),
		SpeechTimeout:        env.Duration("TTS_TIMEOUT", 20*time.Second),
		MCPPort:              env.Str("MCP_PORT", ""),
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := env.Str(k, ""); v != "" {
			return v
		}
	}
	return ""
}

// Languages returns the configured caption language priority list,
// or DefaultCaptionLanguages when none is set.
func (c *Config) Languages() []string {
	if len(c.CaptionLanguages) == 0 {
		return DefaultCaptionLanguages
	}
	return c.CaptionLanguages
}
