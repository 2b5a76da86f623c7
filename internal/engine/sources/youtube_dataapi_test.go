package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

const sampleTrackEvents = `{
	"events": [
		{"tStartMs": 0, "dDurationMs": 1500, "segs": [{"utf8": "Hello "}, {"utf8": "world"}]},
		{"tStartMs": 1500, "dDurationMs": 500, "segs": [{"utf8": "  "}, {"utf8": "\n"}]},
		{"dDurationMs": 800, "segs": [{"utf8": "no start"}]},
		{"tStartMs": 2000, "tEndMs": 3250, "segs": [{"utf8": "end derived"}]},
		{"tStartMs": 4000, "wDurationMs": 250, "segs": [{"utf8": "word duration"}]},
		{"tStartMs": 5000, "segs": [{"utf8": "no duration"}]},
		{"tStartMs": 6000, "dDurationMs": 100}
	]
}`

func TestParseTrackEvents(t *testing.T) {
	cues, err := parseTrackEvents([]byte(sampleTrackEvents), "t1")
	require.NoError(t, err)
	require.Len(t, cues, 4)

	assert.Equal(t, engine.CaptionCue{Text: "Hello world", Start: 0, Duration: 1.5}, cues[0])
	assert.Equal(t, engine.CaptionCue{Text: "end derived", Start: 2, Duration: 1.25}, cues[1])
	assert.Equal(t, engine.CaptionCue{Text: "word duration", Start: 4, Duration: 0.25}, cues[2])
	assert.Equal(t, engine.CaptionCue{Text: "no duration", Start: 5, Duration: 0}, cues[3])
}

func TestParseTrackEventsNoCues(t *testing.T) {
	_, err := parseTrackEvents([]byte(`{"events": [
		{"tStartMs": 0, "segs": [{"utf8": " "}]},
		{"segs": [{"utf8": "missing start"}]}
	]}`), "t1")
	var nc *engine.NoCuesError
	require.True(t, errors.As(err, &nc), "expected NoCuesError, got %v", err)
	assert.Equal(t, "t1", nc.TrackID)

	_, err = parseTrackEvents([]byte(`not json`), "t1")
	assert.Error(t, err)
}

func newDataAPIServer(t *testing.T, list, events string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/captions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snippet", r.URL.Query().Get("part"))
		assert.Equal(t, "key123", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(list))
	})
	mux.HandleFunc("/captions/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/captions/track-en", r.URL.Path)
		assert.Equal(t, "json3", r.URL.Query().Get("tfmt"))
		_, _ = w.Write([]byte(events))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestYouTubeDataClientFetchCues(t *testing.T) {
	srv := newDataAPIServer(t, `{"items": [
		{"id": "track-vi", "snippet": {"language": "vi", "trackKind": "standard"}},
		{"id": "track-en", "snippet": {"language": "en", "trackKind": "asr"}}
	]}`, sampleTrackEvents)

	c := NewYouTubeDataClient("key123", srv.URL+"/", srv.Client())
	cues, err := c.FetchCues(context.Background(), "abc", []string{"en", "vi"})
	require.NoError(t, err)
	assert.Len(t, cues, 4)
	assert.Equal(t, "Hello world", cues[0].Text)
}

func TestYouTubeDataClientListTracksKinds(t *testing.T) {
	srv := newDataAPIServer(t, `{"items": [
		{"id": "a", "snippet": {"language": "en", "trackKind": "ASR"}},
		{"id": "b", "snippet": {"language": "en-GB", "trackKind": "standard"}}
	]}`, "")

	c := NewYouTubeDataClient("key123", srv.URL, srv.Client())
	tracks, err := c.ListTracks(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []engine.TrackDescriptor{
		{ID: "a", Language: "en", Kind: engine.TrackKindASR},
		{ID: "b", Language: "en-GB", Kind: "standard"},
	}, tracks)
}

func TestYouTubeDataClientNoKey(t *testing.T) {
	c := NewYouTubeDataClient("", "http://127.0.0.1:0", http.DefaultClient)
	_, err := c.FetchCues(context.Background(), "abc", []string{"en"})
	var ce *engine.ConfigError
	assert.True(t, errors.As(err, &ce), "expected ConfigError, got %v", err)
}

func TestYouTubeDataClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name: "http error", status: http.StatusForbidden, body: `{"error": {"code": 403, "message": "quotaExceeded"}}`,
			checkFn: func(t *testing.T, err error) {
				var he *engine.UpstreamHTTPError
				require.True(t, errors.As(err, &he), "got %v", err)
				assert.Equal(t, http.StatusForbidden, he.StatusCode)
				assert.Contains(t, he.Body, "quotaExceeded")
			},
		},
		{
			name: "api error payload", status: http.StatusOK, body: `{"error": {"code": 400, "message": "bad video"}}`,
			checkFn: func(t *testing.T, err error) {
				var ae *engine.UpstreamAPIError
				require.True(t, errors.As(err, &ae), "got %v", err)
				assert.Equal(t, "bad video", ae.Message)
			},
		},
		{
			name: "no tracks", status: http.StatusOK, body: `{"items": []}`,
			checkFn: func(t *testing.T, err error) {
				var nf *engine.NotFoundError
				assert.True(t, errors.As(err, &nf), "got %v", err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewYouTubeDataClient("key123", srv.URL, srv.Client())
			_, err := c.FetchCues(context.Background(), "abc", []string{"en"})
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestYouTubeDataClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewYouTubeDataClient("key123", url, http.DefaultClient)
	_, err := c.ListTracks(context.Background(), "abc")
	var ne *engine.NetworkError
	assert.True(t, errors.As(err, &ne), "expected NetworkError, got %v", err)
}
