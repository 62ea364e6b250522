// Package emotion turns noisy per-category emotion scores into a stable,
// ranked signal.
//
// A Processor normalizes each incoming frame, applies per-category
// exponential smoothing, picks a dominant category with a confidence, and
// keeps a bounded history from which rolling statistics are derived.
// Frames from several concurrent sources (face, voice prosody, vocal
// bursts) can be fused into one by weight. Frames map onto aura colors for
// rendering layers.
package emotion

import "time"

// Score is one category's intensity, conventionally in [0, 1].
type Score struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Frame is one timestamped snapshot of category scores. Emotions keep the
// order in which the service ranked them. Frames are treated as immutable
// once produced.
type Frame struct {
	Emotions  []Score   `json:"emotions"`
	Timestamp time.Time `json:"timestamp"`

	// Dominant is the highest scoring category, "" when absent.
	Dominant string `json:"dominant,omitempty"`

	// Confidence is in [0, 1], nil when absent.
	Confidence *float64 `json:"confidence,omitempty"`
}

// Score returns the score of the named category and whether it is present.
func (f Frame) Score(name string) (float64, bool) {
	for _, s := range f.Emotions {
		if s.Name == name {
			return s.Score, true
		}
	}
	return 0, false
}

// ConfidenceOr returns the frame confidence, or def when absent.
func (f Frame) ConfidenceOr(def float64) float64 {
	if f.Confidence == nil {
		return def
	}
	return *f.Confidence
}

// Source is one input to Fuse.
type Source struct {
	Frame  Frame
	Weight float64
}

// Statistics summarizes the current history.
type Statistics struct {
	// Mean and Variance are per category, taken over the frames in which
	// the category appears. Variance is the population variance.
	Mean     map[string]float64 `json:"mean"`
	Variance map[string]float64 `json:"variance"`

	// Dominant is the category with the highest mean.
	Dominant string `json:"dominant,omitempty"`

	// Stability is 1/(1+average variance).
	Stability float64 `json:"stability"`

	// Volatility is the mean absolute frame-to-frame score change.
	Volatility float64 `json:"volatility"`

	// Samples is the number of frames the statistics cover.
	Samples int `json:"samples"`
}

// AuraColor is the rendering hint derived from a frame.
type AuraColor struct {
	Primary   string  `json:"primary"`
	Secondary string  `json:"secondary"`
	Accent    string  `json:"accent"`
	Intensity float64 `json:"intensity"`

	// PulseRate is in cycles per second.
	PulseRate float64 `json:"pulse_rate"`
}

func cloneScores(scores []Score) []Score {
	if scores == nil {
		return nil
	}
	out := make([]Score, len(scores))
	copy(out, scores)
	return out
}
