package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_dictation/internal/engine"
	"github.com/anatolykoptev/go_dictation/internal/engine/sources"
)

type failingSource struct {
	name string
	err  error
}

func (f failingSource) Name() string { return f.name }

func (f failingSource) FetchCues(context.Context, string, []string) ([]engine.CaptionCue, error) {
	return nil, f.err
}

type okSource struct{ cues []engine.CaptionCue }

func (okSource) Name() string { return "ok" }

func (s okSource) FetchCues(context.Context, string, []string) ([]engine.CaptionCue, error) {
	return s.cues, nil
}

type stubTranslator struct {
	text, target, source string
	out                  string
	err                  error
}

func (s *stubTranslator) Translate(_ context.Context, text, target, source string) (string, error) {
	s.text, s.target, s.source = text, target, source
	return s.out, s.err
}

type stubSpeech struct {
	text, language string
	out            sources.Speech
	err            error
}

func (s *stubSpeech) Synthesize(_ context.Context, text, language string) (sources.Speech, error) {
	s.text, s.language = text, language
	return s.out, s.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCaptionsBothSourcesFail(t *testing.T) {
	fetcher := sources.NewCaptionFetcher([]string{"en", "vi"},
		failingSource{name: "youtube_data_api", err: &engine.ConfigError{Setting: "YOUTUBE_API_KEY"}},
		failingSource{name: "youtube_transcript", err: errors.New("transcripts disabled")},
	)
	h := New(fetcher, &stubTranslator{}, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodPost, "/api/captions", `{"videoId":"abc"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, []any{}, out["sentences"])
	assert.Contains(t, out["error"], "abc")
}

func TestCaptionsSuccess(t *testing.T) {
	fetcher := sources.NewCaptionFetcher([]string{"en"},
		failingSource{name: "primary", err: errors.New("boom")},
		okSource{cues: []engine.CaptionCue{{Text: "Hello", Start: 3661, Duration: 2}}},
	)
	h := New(fetcher, &stubTranslator{}, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodPost, "/api/captions", `{"videoId":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "error")
	sentences := out["sentences"].([]any)
	require.Len(t, sentences, 1)
	s := sentences[0].(map[string]any)
	assert.Equal(t, "Hello", s["text"])
	assert.Equal(t, 3661.0, s["start"])
	assert.Equal(t, 3663.0, s["end"])
	assert.Equal(t, "01:01:01", s["timestamp"])
}

func TestCaptionsBadBody(t *testing.T) {
	fetcher := sources.NewCaptionFetcher([]string{"en"}, okSource{})
	h := New(fetcher, &stubTranslator{}, &stubSpeech{}).Router()

	for _, body := range []string{`{not json`, ``, `{}`} {
		rec := do(t, h, http.MethodPost, "/api/captions", body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
		out := decode(t, rec)
		assert.Equal(t, false, out["success"], body)
		assert.Equal(t, []any{}, out["sentences"], body)
		assert.NotEmpty(t, out["error"], body)
	}
}

func TestTranslateSuccessDefaults(t *testing.T) {
	tr := &stubTranslator{out: "xin chào"}
	h := New(sources.NewCaptionFetcher(nil), tr, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodPost, "/api/translate", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"translation": "xin chào"}, decode(t, rec))
	assert.Equal(t, "hello", tr.text)
	assert.Equal(t, "vi", tr.target)
	assert.Equal(t, "", tr.source)

	rec = do(t, h, http.MethodPost, "/api/translate", `{"text":"bonjour","target_language":"en","source_language":"fr"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", tr.target)
	assert.Equal(t, "fr", tr.source)

	rec = do(t, h, http.MethodPost, "/api/translate", `{"text":"hello","source_language":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", tr.source)
}

func TestTranslateServiceErrorIs400(t *testing.T) {
	tr := &stubTranslator{err: &engine.TranslationServiceError{Err: &engine.UpstreamHTTPError{
		Service: "Google Translation API", StatusCode: 403, Body: "API key not valid",
	}}}
	h := New(sources.NewCaptionFetcher(nil), tr, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodPost, "/api/translate", `{"text":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "API key not valid")
}

func TestTranslateConfigErrorIs400(t *testing.T) {
	tr := &stubTranslator{err: &engine.ConfigError{Setting: "GOOGLE_TRANSLATE_API_KEY"}}
	h := New(sources.NewCaptionFetcher(nil), tr, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodPost, "/api/translate", `{"text":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateUnexpectedErrorIs500(t *testing.T) {
	tr := &stubTranslator{err: &engine.NetworkError{Op: "translate", Err: errors.New("dial tcp 10.0.0.1: secret detail")}}
	h := New(sources.NewCaptionFetcher(nil), tr, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodPost, "/api/translate", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"detail": "Unexpected error while translating text."}, decode(t, rec))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestTranslateInvalidBody(t *testing.T) {
	h := New(sources.NewCaptionFetcher(nil), &stubTranslator{}, &stubSpeech{}).Router()
	rec := do(t, h, http.MethodPost, "/api/translate", `[1,2`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["detail"])
}

func TestCORSPreflight(t *testing.T) {
	h := New(sources.NewCaptionFetcher(nil), &stubTranslator{}, &stubSpeech{}).Router()

	req := httptest.NewRequest(http.MethodOptions, "/api/translate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(sources.NewCaptionFetcher(nil), &stubTranslator{}, &stubSpeech{}).Router()
	rec := do(t, h, http.MethodGet, "/api/captions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	h := New(sources.NewCaptionFetcher(nil), &stubTranslator{}, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decode(t, rec))

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "caption_requests ")
}

func TestRequestIDPropagated(t *testing.T) {
	h := New(sources.NewCaptionFetcher(nil), &stubTranslator{}, &stubSpeech{}).Router()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
}

func TestCaptionsNonFiniteTimesStillEncode(t *testing.T) {
	fetcher := sources.NewCaptionFetcher([]string{"en"},
		okSource{cues: []engine.CaptionCue{{Text: "odd", Start: math.NaN(), Duration: math.Inf(1)}}},
	)
	h := New(fetcher, &stubTranslator{}, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodPost, "/api/captions", `{"videoId":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	s := out["sentences"].([]any)[0].(map[string]any)
	assert.Equal(t, 0.0, s["start"])
	assert.Equal(t, 0.0, s["end"])
	assert.Equal(t, "00:00:00", s["timestamp"])
}

func TestGetCaptionsQuery(t *testing.T) {
	fetcher := sources.NewCaptionFetcher([]string{"en"},
		okSource{cues: []engine.CaptionCue{{Text: "a", Start: 1, Duration: 1}, {Text: "b", Start: 2, Duration: 1}}},
	)
	h := New(fetcher, &stubTranslator{}, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodGet, "/api/get-captions?videoId=https://youtu.be/dQw4w9WgXcQ", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "dQw4w9WgXcQ", out["videoId"])
	assert.Equal(t, 2.0, out["count"])
	assert.Len(t, out["sentences"], 2)

	rec = do(t, h, http.MethodGet, "/api/get-captions", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing videoId", decode(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/api/get-captions?videoId=abc", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetCaptionsFailureIs404(t *testing.T) {
	fetcher := sources.NewCaptionFetcher([]string{"en"},
		failingSource{name: "youtube_transcript", err: errors.New("transcripts disabled")},
	)
	h := New(fetcher, &stubTranslator{}, &stubSpeech{}).Router()

	rec := do(t, h, http.MethodGet, "/api/get-captions?videoId=abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "abc", out["videoId"])
	assert.Equal(t, []any{}, out["sentences"])
	assert.Contains(t, out["error"], "transcripts disabled")
}

func TestSpeechSuccess(t *testing.T) {
	sp := &stubSpeech{out: sources.Speech{AudioBase64: "AAAA", Size: 3}}
	h := New(sources.NewCaptionFetcher(nil), &stubTranslator{}, sp).Router()

	for _, path := range []string{"/api/text-to-speech", "/api/tts"} {
		rec := do(t, h, http.MethodPost, path, `{"text":"hello","language":"vi-VN"}`)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, map[string]any{
			"success": true,
			"audio":   "data:audio/mpeg;base64,AAAA",
			"format":  "mp3",
			"length":  3.0,
		}, decode(t, rec))
		assert.Equal(t, "hello", sp.text)
		assert.Equal(t, "vi-VN", sp.language)
	}
}

func TestSpeechErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantError  string
		check      func(t *testing.T, out map[string]any)
	}{
		{
			name: "blank text", err: sources.ErrEmptyText, body: `{"text":" "}`,
			wantStatus: http.StatusBadRequest, wantError: sources.ErrEmptyText.Error(),
		},
		{
			name: "too long", err: &engine.TextTooLongError{Length: 5001, Max: 5000}, body: `{"text":"x"}`,
			wantStatus: http.StatusBadRequest, wantError: "Text is too long. Maximum length is approximately 5000 characters. Your text has 5001 characters.",
		},
		{
			name: "no key falls back to browser speech", err: &engine.ConfigError{Setting: "GOOGLE_TTS_API_KEY"}, body: `{"text":"x"}`,
			wantStatus: http.StatusOK, wantError: "TTS_API_KEY_NOT_CONFIGURED",
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, false, out["success"])
				fallback := out["fallback"].(map[string]any)
				assert.Equal(t, "web_speech_api", fallback["type"])
			},
		},
		{
			name: "upstream rejection", err: &engine.UpstreamAPIError{Service: "tts", Message: "Invalid voice"}, body: `{"text":"x"}`,
			wantStatus: http.StatusInternalServerError, wantError: "TTS_GENERATION_FAILED",
			check: func(t *testing.T, out map[string]any) {
				assert.Contains(t, out["message"], "Invalid voice")
			},
		},
		{
			name: "unexpected failure is generic", err: &engine.NetworkError{Op: "tts", Err: errors.New("dial 10.0.0.1: secret")}, body: `{"text":"x"}`,
			wantStatus: http.StatusInternalServerError, wantError: "TTS_GENERATION_FAILED",
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "Failed to generate audio with Google TTS.", out["message"])
			},
		},
		{
			name: "invalid body", body: `{"text":`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(sources.NewCaptionFetcher(nil), &stubTranslator{}, &stubSpeech{err: tt.err}).Router()
			rec := do(t, h, http.MethodPost, "/api/text-to-speech", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			out := decode(t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, out["error"])
			} else {
				assert.NotEmpty(t, out["error"])
			}
			assert.NotContains(t, rec.Body.String(), "secret")
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}
