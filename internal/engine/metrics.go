package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	CaptionRequests atomic.Int64
	CaptionPrimary  atomic.Int64
	CaptionFallback atomic.Int64
	CaptionFailures atomic.Int64
	TranslateCalls  atomic.Int64
	TranslateErrors atomic.Int64
	YouTubeAPICalls atomic.Int64
	TranscriptCalls atomic.Int64
	SpeechCalls     atomic.Int64
	SpeechErrors    atomic.Int64
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"caption_requests":         metrics.CaptionRequests.Load(),
		"caption_primary_hits":     metrics.CaptionPrimary.Load(),
		"caption_fallback_hits":    metrics.CaptionFallback.Load(),
		"caption_failures":         metrics.CaptionFailures.Load(),
		"translate_calls":          metrics.TranslateCalls.Load(),
		"translate_errors":         metrics.TranslateErrors.Load(),
		"youtube_api_requests":     metrics.YouTubeAPICalls.Load(),
		"youtube_transcript_fetch": metrics.TranscriptCalls.Load(),
		"tts_calls":                metrics.SpeechCalls.Load(),
		"tts_errors":               metrics.SpeechErrors.Load(),
	}
}

var metricKeys = []string{
	"caption_requests", "caption_primary_hits", "caption_fallback_hits", "caption_failures",
	"translate_calls", "translate_errors",
	"youtube_api_requests", "youtube_transcript_fetch",
	"tts_calls", "tts_errors",
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ sub-package.
func IncrCaptionRequests()   { metrics.CaptionRequests.Add(1) }
func IncrCaptionFailures()   { metrics.CaptionFailures.Add(1) }
func IncrTranslateCalls()    { metrics.TranslateCalls.Add(1) }
func IncrTranslateErrors()   { metrics.TranslateErrors.Add(1) }
func IncrYouTubeAPICalls()   { metrics.YouTubeAPICalls.Add(1) }
func IncrTranscriptFetches() { metrics.TranscriptCalls.Add(1) }
func IncrSpeechCalls()       { metrics.SpeechCalls.Add(1) }
func IncrSpeechErrors()      { metrics.SpeechErrors.Add(1) }

// IncrCaptionServed counts a successful caption fetch; primary reports
// whether the first source in the chain served it.
func IncrCaptionServed(primary bool) {
	if primary {
		metrics.CaptionPrimary.Add(1)
		return
	}
	metrics.CaptionFallback.Add(1)
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
