package sources

import (
	"regexp"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_dictation/internal/engine"
)

// asrPenalty keeps human-authored tracks ahead of auto-generated ones
// at equal language rank.
const asrPenalty = 0.1

type scoredTrack struct {
	track   engine.TrackDescriptor
	score   float64
	matched bool
}

// langRank returns the index of lang in preferred, trying an exact
// case-insensitive match first and then a primary-subtag match.
// Unmatched languages rank len(preferred).
func langRank(lang string, preferred []string) (int, bool) {
	for i, p := range preferred {
		if strings.EqualFold(strings.TrimSpace(p), strings.TrimSpace(lang)) {
			return i, true
		}
	}
	for i, p := range preferred {
		if engine.LangMatch(lang, p) {
			return i, true
		}
	}
	return len(preferred), false
}

// SelectTrack picks the best caption track for the preferred languages.
// Lower score wins; ties keep candidate order. When no candidate matches a
// preferred language the best-scoring track overall is returned. The bool is
// false only when no candidate has both an id and a language.
func SelectTrack(candidates []engine.TrackDescriptor, preferred []string) (engine.TrackDescriptor, bool) {
	scored := make([]scoredTrack, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == "" || strings.TrimSpace(c.Language) == "" {
			continue
		}
		rank, matched := langRank(c.Language, preferred)
		score := float64(rank)
		if strings.EqualFold(c.Kind, engine.TrackKindASR) {
			score += asrPenalty
		}
		scored = append(scored, scoredTrack{track: c, score: score, matched: matched})
	}
	if len(scored) == 0 {
		return engine.TrackDescriptor{}, false
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score < scored[j].score })

	for _, s := range scored {
		if s.matched {
			return s.track, true
		}
	}
	return scored[0].track, true
}

var videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// NormalizeVideoID accepts a bare video id or any common YouTube URL form
// and returns the id.
func NormalizeVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := videoIDRE.FindStringSubmatch(raw); len(m) >= 2 {
		return m[1]
	}
	return raw
}
