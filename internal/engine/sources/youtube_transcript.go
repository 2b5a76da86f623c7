package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

// YouTube transcript fetching without an API key, used as the fallback
// caption source. Strategies, tried in order:
//  1. watch page ytInitialPlayerResponse -> caption track -> timedtext XML
//  2. ANDROID Innertube /player -> caption track -> timedtext XML
//  3. WEB /next engagement panel -> /get_transcript segments
// All requests go through the (optionally proxied) transcript client.

// TranscriptClient fetches transcripts the way a browser or the mobile app does.
type TranscriptClient struct {
	client    *http.Client
	endpoints ytEndpoints
}

// NewTranscriptClient wraps client, which should carry the configured proxies.
func NewTranscriptClient(client *http.Client) *TranscriptClient {
	return &TranscriptClient{client: client, endpoints: defaultYTEndpoints}
}

// Name identifies the source in logs and errors.
func (c *TranscriptClient) Name() string { return "youtube_transcript" }

// FetchCues tries each transcript strategy until one returns cues.
func (c *TranscriptClient) FetchCues(ctx context.Context, videoID string, langs []string) ([]engine.CaptionCue, error) {
	engine.IncrTranscriptFetches()

	cues, err := c.fetchViaPageScrape(ctx, videoID, langs)
	if err == nil {
		return cues, nil
	}
	slog.Warn("youtube: page scrape failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))

	cues, err = c.fetchViaPlayer(ctx, videoID, langs)
	if err == nil {
		return cues, nil
	}
	slog.Warn("youtube: player failed, trying engagement panel",
		slog.String("id", videoID), slog.Any("err", err))

	return c.fetchViaEngagementPanel(ctx, videoID)
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language
// preferences using SelectTrack. Tracks that require a PoToken are skipped.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	byURL := make(map[string]captionTrack, len(tracks))
	candidates := make([]engine.TrackDescriptor, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL == "" || needsPoToken(t.BaseURL) {
			continue
		}
		kind := "standard"
		if strings.EqualFold(t.Kind, "asr") {
			kind = engine.TrackKindASR
		}
		byURL[t.BaseURL] = t
		candidates = append(candidates, engine.TrackDescriptor{ID: t.BaseURL, Language: t.LanguageCode, Kind: kind})
	}
	best, ok := SelectTrack(candidates, langs)
	if !ok {
		return captionTrack{}, false
	}
	return byURL[best.ID], true
}

// fetchTracks picks a track from a player response and downloads it.
func (c *TranscriptClient) fetchTracks(ctx context.Context, playerResp innertubePlayerResp, langs []string) ([]engine.CaptionCue, error) {
	if playerResp.Captions == nil {
		if playerResp.PlayabilityStatus != nil && playerResp.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", playerResp.PlayabilityStatus.Reason)
		}
		return nil, &engine.NotFoundError{What: "captions in player response"}
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, &engine.NotFoundError{What: "caption tracks"}
	}
	track, ok := pickBestTrack(tracks, langs)
	if !ok {
		return nil, errors.New("all caption tracks require PoToken")
	}
	return c.fetchTimedText(ctx, track.BaseURL)
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func (c *TranscriptClient) fetchTimedText(ctx context.Context, baseURL string) ([]engine.CaptionCue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.RandomUserAgent())

	body, err := doYouTube(c.client, req, 2*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	return parseTimedText(body, baseURL)
}

// parseFinite parses a numeric attribute, rejecting NaN and infinities.
func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseTimedText converts timedtext XML into cues. Lines without a finite
// start attribute or without text are skipped.
func parseTimedText(body []byte, trackID string) ([]engine.CaptionCue, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var cues []engine.CaptionCue
	for _, line := range tt.Lines {
		start, ok := parseFinite(line.Start)
		if !ok {
			continue
		}
		text := engine.CleanHTML(line.Text)
		if text == "" {
			continue
		}
		dur, _ := parseFinite(line.Dur)
		cues = append(cues, engine.CaptionCue{Text: text, Start: start, Duration: dur})
	}
	for _, p := range tt.Paragraphs {
		startMs, ok := parseFinite(p.T)
		if !ok {
			continue
		}
		text := engine.CleanHTML(p.Inner)
		if text == "" {
			continue
		}
		durMs, _ := parseFinite(p.D)
		cues = append(cues, engine.CaptionCue{Text: text, Start: startMs / 1000, Duration: durMs / 1000})
	}
	if len(cues) == 0 {
		return nil, &engine.NoCuesError{TrackID: trackID}
	}
	return cues, nil
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// fetchViaPageScrape scrapes the watch page HTML and reads caption tracks
// from ytInitialPlayerResponse.
func (c *TranscriptClient) fetchViaPageScrape(ctx context.Context, videoID string, langs []string) ([]engine.CaptionCue, error) {
	watchURL := c.endpoints.Watch + "?v=" + url.QueryEscape(videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range engine.ChromeHeaders() {
		req.Header.Set(k, v)
	}
	// net/http only decompresses transparently when it set Accept-Encoding itself.
	req.Header.Del("Accept-Encoding")

	body, err := doYouTube(c.client, req, 6*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return c.fetchTracks(ctx, playerResp, langs)
}

// fetchViaPlayer uses the ANDROID Innertube /player endpoint.
func (c *TranscriptClient) fetchViaPlayer(ctx context.Context, videoID string, langs []string) ([]engine.CaptionCue, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Player+"?prettyPrint=false", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ytAndroidUA)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)

	body, err := doYouTube(c.client, req, 3*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(body, &playerResp); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return c.fetchTracks(ctx, playerResp, langs)
}

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", errors.New("getTranscriptEndpoint not found in engagement panels")
}

// parseTranscriptSegments converts /get_transcript segments into cues.
func parseTranscriptSegments(resp ytGetTranscriptResp) []engine.CaptionCue {
	var cues []engine.CaptionCue
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range r.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			text := strings.TrimSpace(sb.String())
			if text == "" {
				continue
			}
			startMs, ok := parseFinite(r.StartMs)
			if !ok {
				continue
			}
			endMs, ok := parseFinite(r.EndMs)
			if !ok {
				endMs = startMs
			}
			cues = append(cues, engine.CaptionCue{
				Text:     text,
				Start:    startMs / 1000,
				Duration: (endMs - startMs) / 1000,
			})
		}
	}
	return cues
}

// fetchViaEngagementPanel fetches a transcript via:
//  1. POST /next -> engagementPanels containing the transcript continuation token
//  2. POST /get_transcript with the token -> JSON segments
func (c *TranscriptClient) fetchViaEngagementPanel(ctx context.Context, videoID string) ([]engine.CaptionCue, error) {
	visitorData := generateVisitorData()

	nextData, err := postInnerTubeWEB(ctx, c.client, c.endpoints.Next, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return nil, fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}

	transcriptData, err := postInnerTubeWEB(ctx, c.client, c.endpoints.GetTranscript, map[string]any{
		"params":  token,
		"context": ytWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return nil, fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	cues := parseTranscriptSegments(transcriptResp)
	if len(cues) == 0 {
		return nil, &engine.NoCuesError{TrackID: "engagement-panel:" + videoID}
	}
	return cues, nil
}
