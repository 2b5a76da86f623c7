package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_dictation/internal/engine"
	"github.com/anatolykoptev/go_dictation/internal/engine/sources"
	"github.com/anatolykoptev/go_dictation/internal/toolutil"
)

const maxBodyBytes = 1 << 20

type captionsRequest struct {
	VideoID string `json:"videoId"`
}

type translateRequest struct {
	Text           string  `json:"text"`
	TargetLanguage string  `json:"target_language"`
	SourceLanguage *string `json:"source_language"`
}

// handleCaptions always answers 200; failures are reported in the envelope.
func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	var req captionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, toolutil.CaptionsEnvelope(nil, err))
		return
	}

	videoID := sources.NormalizeVideoID(req.VideoID)
	sentences, err := s.fetchCaptions(r, videoID)
	writeJSON(w, http.StatusOK, toolutil.CaptionsEnvelope(sentences, err))
}

// handleGetCaptions serves GET ?videoId= with the same envelope plus videoId
// and count, reporting a missing id as 400 and a failed fetch as 404.
func (s *Server) handleGetCaptions(w http.ResponseWriter, r *http.Request) {
	videoID := sources.NormalizeVideoID(r.URL.Query().Get("videoId"))
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, toolutil.CaptionsEnvelope(nil, sources.ErrMissingVideoID))
		return
	}

	sentences, err := s.fetchCaptions(r, videoID)
	resp := toolutil.CaptionsEnvelope(sentences, err)
	resp.VideoID = videoID
	if err != nil {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	resp.Count = len(resp.Sentences)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fetchCaptions(r *http.Request, videoID string) ([]engine.NormalizedSentence, error) {
	sentences, err := s.captions.Fetch(r.Context(), videoID)
	if err != nil {
		slog.Warn("captions failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("id", videoID),
			slog.Any("error", err))
		return nil, err
	}
	slog.Info("captions served",
		slog.String("request_id", RequestID(r.Context())),
		slog.String("id", videoID),
		slog.Int("sentences", len(sentences)))
	return sentences, nil
}

// handleTranslate maps translator configuration and upstream failures to 400
// and anything else to a generic 500.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorDetail{Detail: err.Error()})
		return
	}

	source := ""
	if req.SourceLanguage != nil {
		source = *req.SourceLanguage
	}
	translated, err := s.translator.Translate(r.Context(), req.Text, toolutil.NormTargetLang(req.TargetLanguage), source)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toolutil.TranslateResponse{Translation: translated})
	case engine.IsTranslationServiceError(err):
		slog.Warn("translate rejected",
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err))
		writeJSON(w, http.StatusBadRequest, errorDetail{Detail: err.Error()})
	default:
		slog.Error("translate failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorDetail{Detail: "Unexpected error while translating text."})
	}
}

type speechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// handleSpeech answers 200 with audio, 200 with a browser fallback when no
// key is configured, 400 for blank or overlong text, and 500 when synthesis
// fails. Only upstream messages are passed through on 500.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, toolutil.SpeechResponse{Error: err.Error()})
		return
	}

	speech, err := s.speech.Synthesize(r.Context(), req.Text, req.Language)
	var ce *engine.ConfigError
	var tooLong *engine.TextTooLongError
	switch {
	case err == nil:
		slog.Info("speech generated",
			slog.String("request_id", RequestID(r.Context())),
			slog.Int("chars", len(req.Text)),
			slog.Int("bytes", speech.Size))
		writeJSON(w, http.StatusOK, toolutil.SpeechAudio(speech.DataURI(), speech.Size))
	case errors.Is(err, sources.ErrEmptyText), errors.As(err, &tooLong):
		writeJSON(w, http.StatusBadRequest, toolutil.SpeechResponse{Error: err.Error()})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusOK, toolutil.SpeechUnconfigured(ce.Error()))
	case engine.IsUpstreamError(err):
		slog.Warn("speech rejected",
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, toolutil.SpeechFailed(err.Error()))
	default:
		slog.Error("speech failed",
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, toolutil.SpeechFailed("Failed to generate audio with Google TTS."))
	}
}

var errEmptyBody = errors.New("request body is required")

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}
