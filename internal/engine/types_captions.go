package engine

// --- Caption types ---

// CaptionCue is a single timed text fragment from a caption track.
// Start and Duration are in seconds.
type CaptionCue struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// NormalizedSentence is a CaptionCue with derived end time and HH:MM:SS timestamp.
type NormalizedSentence struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"duration"`
	Timestamp string  `json:"timestamp"`
}

// TrackKindASR marks an auto-generated (speech recognition) caption track.
const TrackKindASR = "ASR"

// TrackDescriptor is caption track metadata used only for source selection.
type TrackDescriptor struct {
	ID       string
	Language string
	Kind     string // "ASR" or "standard"; compared case-insensitively
}
