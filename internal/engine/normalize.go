package engine

import (
	"fmt"
	"math"
)

// maxTimestampSeconds caps FormatTimestamp input so the int64 conversion
// cannot overflow.
const maxTimestampSeconds = 1 << 53

// Normalize clamps negative or non-finite start/duration values to zero and
// derives end time and timestamp for each cue.
func Normalize(cues []CaptionCue) []NormalizedSentence {
	out := make([]NormalizedSentence, 0, len(cues))
	for _, c := range cues {
		start := clampSeconds(c.Start)
		duration := clampSeconds(c.Duration)
		end := start + duration
		if math.IsInf(end, 0) {
			end = math.MaxFloat64
		}
		out = append(out, NormalizedSentence{
			Text:      c.Text,
			Start:     start,
			End:       end,
			Duration:  duration,
			Timestamp: FormatTimestamp(start),
		})
	}
	return out
}

// clampSeconds maps negative, NaN and infinite values to 0.
func clampSeconds(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// FormatTimestamp renders seconds as zero-padded HH:MM:SS, truncating
// fractional seconds. Hours are unbounded.
func FormatTimestamp(seconds float64) string {
	seconds = clampSeconds(seconds)
	if seconds > maxTimestampSeconds {
		seconds = maxTimestampSeconds
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
