package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

// YouTube Data API captions source: list tracks for a video, pick one with
// SelectTrack, download its json3 event list.

const (
	ytDataAPIService = "YouTube Data API"
	ytMaxBody        = 4 * 1024 * 1024
)

// --- captions.list response ---

type ytCaptionListResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Language  string `json:"language"`
			TrackKind string `json:"trackKind"` // "standard", "asr", "forced"
		} `json:"snippet"`
	} `json:"items"`
}

// --- json3 track events ---

type ytTrackEvents struct {
	Events []ytTrackEvent `json:"events"`
}

type ytTrackEvent struct {
	TStartMs    *float64 `json:"tStartMs"`
	DDurationMs *float64 `json:"dDurationMs"`
	TEndMs      *float64 `json:"tEndMs"`
	WDurationMs *float64 `json:"wDurationMs"`
	Segs        []struct {
		UTF8 string `json:"utf8"`
	} `json:"segs"`
}

// apiErrorPayload is the error envelope shared by Google REST APIs.
type apiErrorPayload struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// YouTubeDataClient is the credential-gated primary caption source.
type YouTubeDataClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewYouTubeDataClient creates a Data API client. An empty apiKey makes
// every fetch fail with a ConfigError.
func NewYouTubeDataClient(apiKey, baseURL string, client *http.Client) *YouTubeDataClient {
	return &YouTubeDataClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name identifies the source in logs and errors.
func (c *YouTubeDataClient) Name() string { return "youtube_data_api" }

// FetchCues lists the video's tracks, selects one for langs and downloads it.
func (c *YouTubeDataClient) FetchCues(ctx context.Context, videoID string, langs []string) ([]engine.CaptionCue, error) {
	if c.apiKey == "" {
		return nil, &engine.ConfigError{Setting: "YOUTUBE_API_KEY"}
	}
	tracks, err := c.ListTracks(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	track, ok := SelectTrack(tracks, langs)
	if !ok {
		return nil, &engine.NotFoundError{What: "caption track for video " + videoID}
	}
	cues, err := c.DownloadTrack(ctx, track.ID)
	if err != nil {
		return nil, fmt.Errorf("download track %s (%s): %w", track.ID, track.Language, err)
	}
	return cues, nil
}

// ListTracks returns the caption tracks available for a video.
func (c *YouTubeDataClient) ListTracks(ctx context.Context, videoID string) ([]engine.TrackDescriptor, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("videoId", videoID)
	q.Set("key", c.apiKey)

	body, err := c.get(ctx, c.baseURL+"/captions?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp ytCaptionListResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode caption list: %w", err)
	}
	tracks := make([]engine.TrackDescriptor, 0, len(resp.Items))
	for _, it := range resp.Items {
		kind := "standard"
		if strings.EqualFold(it.Snippet.TrackKind, "asr") {
			kind = engine.TrackKindASR
		}
		tracks = append(tracks, engine.TrackDescriptor{
			ID:       it.ID,
			Language: it.Snippet.Language,
			Kind:     kind,
		})
	}
	if len(tracks) == 0 {
		return nil, &engine.NotFoundError{What: "caption tracks for video " + videoID}
	}
	return tracks, nil
}

// DownloadTrack fetches a track's event list and converts it to cues.
func (c *YouTubeDataClient) DownloadTrack(ctx context.Context, trackID string) ([]engine.CaptionCue, error) {
	q := url.Values{}
	q.Set("tfmt", "json3")
	q.Set("key", c.apiKey)

	body, err := c.get(ctx, c.baseURL+"/captions/"+url.PathEscape(trackID)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return parseTrackEvents(body, trackID)
}

// parseTrackEvents converts json3 events into cues. Events with no text or
// no start time are skipped; a track with no remaining cues is a NoCuesError.
func parseTrackEvents(data []byte, trackID string) ([]engine.CaptionCue, error) {
	var tt ytTrackEvents
	if err := json.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("decode track events: %w", err)
	}

	cues := make([]engine.CaptionCue, 0, len(tt.Events))
	for _, ev := range tt.Events {
		if ev.TStartMs == nil {
			continue
		}
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		cues = append(cues, engine.CaptionCue{
			Text:     text,
			Start:    *ev.TStartMs / 1000,
			Duration: eventDurationMs(ev) / 1000,
		})
	}
	if len(cues) == 0 {
		return nil, &engine.NoCuesError{TrackID: trackID}
	}
	return cues, nil
}

// eventDurationMs resolves duration from dDurationMs, then tEndMs-tStartMs,
// then wDurationMs, defaulting to 0.
func eventDurationMs(ev ytTrackEvent) float64 {
	switch {
	case ev.DDurationMs != nil:
		return *ev.DDurationMs
	case ev.TEndMs != nil:
		return *ev.TEndMs - *ev.TStartMs
	case ev.WDurationMs != nil:
		return *ev.WDurationMs
	}
	return 0
}

// get performs a single GET and maps failures onto the engine error taxonomy.
func (c *YouTubeDataClient) get(ctx context.Context, target string) ([]byte, error) {
	engine.IncrYouTubeAPICalls()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", engine.UserAgentBot)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &engine.NetworkError{Op: "youtube data api", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, ytMaxBody))
	if err != nil {
		return nil, &engine.NetworkError{Op: "read youtube data api response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &engine.UpstreamHTTPError{
			Service:    ytDataAPIService,
			StatusCode: resp.StatusCode,
			Body:       engine.Snippet(body, 256),
		}
	}

	var apiErr apiErrorPayload
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
		return nil, &engine.UpstreamAPIError{Service: ytDataAPIService, Message: apiErr.Error.Message}
	}
	return body, nil
}
