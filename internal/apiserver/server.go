// Package apiserver exposes the captions and translate HTTP endpoints.
package apiserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/anatolykoptev/go_dictation/internal/engine"
	"github.com/anatolykoptev/go_dictation/internal/engine/sources"
)

// CaptionFetcher returns normalized caption sentences for a video.
type CaptionFetcher interface {
	Fetch(ctx context.Context, videoID string) ([]engine.NormalizedSentence, error)
}

// Translator translates text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error)
}

// SpeechSynthesizer turns text into MP3 audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, language string) (sources.Speech, error)
}

// Server holds the handler dependencies. It keeps no per-request state.
type Server struct {
	captions   CaptionFetcher
	translator Translator
	speech     SpeechSynthesizer
}

// New creates a Server.
func New(captions CaptionFetcher, translator Translator, speech SpeechSynthesizer) *Server {
	return &Server{captions: captions, translator: translator, speech: speech}
}

// Router builds the HTTP routes with CORS, request-id and access-log middleware.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, corsMiddleware, logMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/captions", s.handleCaptions).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/get-captions", s.handleGetCaptions).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/translate", s.handleTranslate).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/text-to-speech", s.handleSpeech).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/tts", s.handleSpeech).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", handleMetrics).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorDetail{Detail: "Method Not Allowed"})
	}))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorDetail{Detail: "Not Found"})
	})
	return r
}

// HTTPServer wraps the router with timeouts sized for two sequential
// upstream calls per request.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

type errorDetail struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", slog.Any("error", err))
	}
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// corsMiddleware allows every origin, method and header. Preflight requests
// are answered directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			h.Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			h.Set("Access-Control-Allow-Headers", "*")
		}
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("http request",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(engine.FormatMetrics()))
}
