package sources

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

// ErrMissingVideoID is returned by Fetch for a blank video id.
var ErrMissingVideoID = errors.New("missing videoId")

// CaptionSource is one way of obtaining cues for a video.
type CaptionSource interface {
	Name() string
	FetchCues(ctx context.Context, videoID string, langs []string) ([]engine.CaptionCue, error)
}

// CaptionFetcher tries its sources in order and normalizes the first
// successful result. Sources run sequentially: a later source is only
// attempted once every earlier one has failed.
type CaptionFetcher struct {
	sources []CaptionSource
	langs   []string
}

// NewCaptionFetcher builds a fetcher over sources in priority order.
func NewCaptionFetcher(langs []string, sources ...CaptionSource) *CaptionFetcher {
	return &CaptionFetcher{sources: sources, langs: langs}
}

// NewCaptionFetcherFromConfig wires the Data API as primary source and the
// proxied transcript client as fallback.
func NewCaptionFetcherFromConfig(c *engine.Config) (*CaptionFetcher, error) {
	apiClient := c.HTTPClient
	if apiClient == nil {
		apiClient = engine.NewHTTPClient(c.HTTPTimeout)
	}
	transcriptClient := c.TranscriptClient
	if transcriptClient == nil {
		var err error
		transcriptClient, err = engine.NewProxyClient(c.HTTPTimeout, c.TranscriptHTTPProxy, c.TranscriptHTTPSProxy)
		if err != nil {
			return nil, err
		}
	}
	return NewCaptionFetcher(c.Languages(),
		NewYouTubeDataClient(c.YouTubeAPIKey, c.YouTubeAPIBase, apiClient),
		NewTranscriptClient(transcriptClient),
	), nil
}

// Fetch returns normalized sentences for videoID. If every source fails the
// error is a *engine.CaptionFetchError naming the video and each cause.
func (f *CaptionFetcher) Fetch(ctx context.Context, videoID string) ([]engine.NormalizedSentence, error) {
	engine.IncrCaptionRequests()

	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		engine.IncrCaptionFailures()
		return nil, ErrMissingVideoID
	}

	fetchErr := &engine.CaptionFetchError{VideoID: videoID}
	for i, src := range f.sources {
		var cues []engine.CaptionCue
		err := engine.TrackOperation(ctx, src.Name(), func(ctx context.Context) error {
			var err error
			cues, err = src.FetchCues(ctx, videoID, f.langs)
			return err
		})
		if err == nil && len(cues) == 0 {
			err = &engine.NoCuesError{TrackID: src.Name() + ":" + videoID}
		}
		if err != nil {
			slog.Warn("captions: source failed",
				slog.String("source", src.Name()),
				slog.String("id", videoID),
				slog.Any("err", err))
			fetchErr.Failures = append(fetchErr.Failures, engine.SourceFailure{Source: src.Name(), Err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		engine.IncrCaptionServed(i == 0)
		slog.Info("captions: fetched",
			slog.String("source", src.Name()),
			slog.String("id", videoID),
			slog.Int("cues", len(cues)))
		return engine.Normalize(cues), nil
	}

	engine.IncrCaptionFailures()
	return nil, fetchErr
}
