package emotion

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-aura/internal/clock"
)

// Processor owns the smoothing state and frame history for one signal.
// It is safe for concurrent use.
type Processor struct {
	alpha      float64
	maxHistory int
	timeWindow time.Duration
	clock      clock.Clock
	logger     *slog.Logger

	mu       sync.Mutex
	smoothed map[string]float64
	history  []Frame
}

// New creates a Processor. Invalid options fall back to defaults so a
// Processor is always usable; use NewValidated to reject them instead.
func New(opts ...Option) *Processor {
	p, err := NewValidated(opts...)
	if err != nil {
		p, _ = NewValidated()
		p.logger.Warn("invalid emotion processor options, using defaults", "error", err)
	}
	return p
}

// NewValidated creates a Processor, failing on invalid options.
func NewValidated(opts ...Option) (*Processor, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Processor{
		alpha:      cfg.Alpha,
		maxHistory: cfg.MaxHistory,
		timeWindow: cfg.TimeWindow,
		clock:      cfg.Clock,
		logger:     cfg.Logger.With("component", "emotion.Processor"),
		smoothed:   make(map[string]float64),
	}, nil
}

// Normalize divides every score by the frame total. A frame whose scores
// sum to exactly zero is returned unchanged.
func (p *Processor) Normalize(f Frame) Frame {
	f.Emotions = normalize(f.Emotions)
	return f
}

// Smooth applies exponential smoothing per category and records the
// smoothed values as the state for the next call. A category seen for the
// first time keeps its raw value.
func (p *Processor) Smooth(f Frame) Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	f.Emotions = p.smoothLocked(f.Emotions)
	return f
}

func (p *Processor) smoothLocked(scores []Score) []Score {
	out := cloneScores(scores)
	for i, s := range out {
		prev, seen := p.smoothed[s.Name]
		if seen {
			out[i].Score = lerp(prev, s.Score, p.alpha)
		}
		p.smoothed[s.Name] = out[i].Score
	}
	return out
}

// Process runs raw scores through normalize, smooth and dominant
// selection, appends the result to the history and returns it.
func (p *Processor) Process(scores []Score) Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processLocked(scores)
}

func (p *Processor) processLocked(scores []Score) Frame {
	smoothed := p.smoothLocked(normalize(scores))
	dominant, confidence := Dominant(smoothed)

	f := Frame{
		Emotions:   smoothed,
		Timestamp:  p.clock.Now(),
		Dominant:   dominant,
		Confidence: &confidence,
	}
	p.appendLocked(f)
	return f
}

// Fuse merges frames from several sources by weight: each category's
// weighted scores are summed and divided by the total weight. Sources with
// a non-positive weight are ignored. The merged scores are then processed
// exactly like a single-source frame.
func (p *Processor) Fuse(sources []Source) Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processLocked(fuse(sources))
}

func fuse(sources []Source) []Score {
	var total float64
	var order []string
	sums := make(map[string]float64)

	for _, src := range sources {
		if src.Weight <= 0 {
			continue
		}
		total += src.Weight
		for _, s := range src.Frame.Emotions {
			if _, ok := sums[s.Name]; !ok {
				order = append(order, s.Name)
			}
			sums[s.Name] += s.Score * src.Weight
		}
	}

	if total == 0 {
		return nil
	}

	merged := make([]Score, 0, len(order))
	for _, name := range order {
		merged = append(merged, Score{Name: name, Score: sums[name] / total})
	}
	return merged
}

// History returns a copy of the retained frames, oldest first.
func (p *Processor) History() []Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Frame, len(p.history))
	copy(out, p.history)
	return out
}

// Latest returns the most recent frame.
func (p *Processor) Latest() (Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return Frame{}, false
	}
	return p.history[len(p.history)-1], true
}

// ClearHistory drops every retained frame and the smoothing state, so the
// next frame is treated as a first observation for every category.
func (p *Processor) ClearHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = nil
	p.smoothed = make(map[string]float64)
	p.logger.Debug("history cleared")
}

func (p *Processor) appendLocked(f Frame) {
	p.history = append(p.history, f)

	if excess := len(p.history) - p.maxHistory; excess > 0 {
		p.history = append([]Frame(nil), p.history[excess:]...)
	}

	if p.timeWindow > 0 {
		cutoff := p.clock.Now().Add(-p.timeWindow)
		drop := 0
		for drop < len(p.history) && p.history[drop].Timestamp.Before(cutoff) {
			drop++
		}
		if drop > 0 {
			p.history = append([]Frame(nil), p.history[drop:]...)
		}
	}
}
