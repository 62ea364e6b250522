package wakeword

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-aura/internal/clock"
)

const phrase = "mirror mirror on the wall"

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newStartedDetector(t *testing.T, opts ...Option) (*Detector, *MockSource, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(t0)
	src := NewMockSource()
	d, err := New(src, append([]Option{WithPhrase(phrase), WithClock(clk)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { d.Stop() })
	drain(d)
	return d, src, clk
}

func drain(d *Detector) []Event {
	var out []Event
	for {
		select {
		case ev := <-d.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func detections(events []Event) []*Result {
	var out []*Result
	for _, ev := range events {
		if ev.Kind == EventDetection {
			out = append(out, ev.Result)
		}
	}
	return out
}

func states(events []Event) []State {
	var out []State
	for _, ev := range events {
		if ev.Kind == EventState {
			out = append(out, ev.State)
		}
	}
	return out
}

func final(text string) Segment {
	return Segment{Text: text, Final: true, Timestamp: t0}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrMissingSource)

	_, err = New(NewMockSource(), WithPhrase("  "))
	require.ErrorIs(t, err, ErrMissingPhrase)

	_, err = New(NewMockSource(), WithThreshold(1.5))
	require.ErrorIs(t, err, ErrInvalidThreshold)

	d, err := New(NewMockSource())
	require.NoError(t, err)
	require.Equal(t, StateIdle, d.State())
}

func TestDetector_ExactMatchFires(t *testing.T) {
	d, _, _ := newStartedDetector(t)

	d.HandleSegment(final("Mirror mirror on the wall"))

	events := drain(d)
	results := detections(events)
	require.Len(t, results, 1)
	require.True(t, results[0].Detected)
	require.Equal(t, phrase, results[0].Phrase)
	require.Equal(t, 1.0, results[0].Confidence)
	require.Equal(t, t0, results[0].Timestamp)
	require.Equal(t, []State{StateDetected, StateCooldown}, states(events))
	require.Equal(t, StateCooldown, d.State())
}

func TestDetector_FuzzyMatchFollowsFormula(t *testing.T) {
	d, _, _ := newStartedDetector(t)

	d.HandleSegment(final("marroh mirror on da wall"))

	results := detections(drain(d))
	require.Len(t, results, 1)
	require.InDelta(t, 0.8, results[0].Confidence, 1e-12)
}

func TestDetector_BelowThresholdIgnored(t *testing.T) {
	d, _, _ := newStartedDetector(t)

	d.HandleSegment(final("mirror mirror"))
	d.HandleSegment(final("what is the weather"))

	require.Empty(t, detections(drain(d)))
	require.Equal(t, StateListening, d.State())
}

func TestDetector_CooldownSuppressesSecondMatch(t *testing.T) {
	d, _, clk := newStartedDetector(t, WithCooldown(3000*time.Millisecond))

	d.HandleSegment(final(phrase))
	clk.Advance(500 * time.Millisecond)
	d.HandleSegment(final(phrase))

	require.Len(t, detections(drain(d)), 1)
	require.Equal(t, StateCooldown, d.State())

	clk.Advance(2500 * time.Millisecond)
	require.Equal(t, StateListening, d.State())

	d.HandleSegment(final(phrase))
	require.Len(t, detections(drain(d)), 1)
}

func TestDetector_Alternatives(t *testing.T) {
	d, _, _ := newStartedDetector(t, WithAlternatives("magic mirror on the wall", "hey aura"))

	d.HandleSegment(final("magic mirror on the wall"))

	results := detections(drain(d))
	require.Len(t, results, 1)
	require.Equal(t, "magic mirror on the wall", results[0].Phrase)
	require.Equal(t, []string{phrase}, results[0].AlternativeMatches)
}

func TestDetector_InterimArmsTimeoutOnly(t *testing.T) {
	d, _, clk := newStartedDetector(t, WithDetectionTimeout(5*time.Second))

	d.HandleSegment(Segment{Text: "mirror mirror on the wall"})
	require.Empty(t, detections(drain(d)))
	require.Equal(t, StateListening, d.State())
	require.Equal(t, 1, clk.Pending())

	d.HandleSegment(Segment{Text: "unrelated words"})
	require.Equal(t, 1, clk.Pending())

	clk.Advance(5 * time.Second)
	require.Zero(t, clk.Pending())
	require.Equal(t, StateListening, d.State())
	require.Empty(t, drain(d))
}

func TestDetector_FinalCancelsDetectionTimeout(t *testing.T) {
	d, _, clk := newStartedDetector(t, WithCooldown(time.Second))

	d.HandleSegment(Segment{Text: "mirror"})
	d.HandleSegment(final(phrase))

	// Only the cooldown timer remains.
	require.Equal(t, 1, clk.Pending())
	deadline, ok := clk.NextDeadline()
	require.True(t, ok)
	require.Equal(t, time.Second, deadline)
}

func TestDetector_StopCancelsTimers(t *testing.T) {
	d, src, clk := newStartedDetector(t)

	d.HandleSegment(Segment{Text: "mirror"})
	d.HandleSegment(final(phrase))
	require.NoError(t, d.Stop())

	require.Zero(t, clk.Pending())
	require.Equal(t, StateIdle, d.State())
	require.False(t, src.Running())

	clk.Advance(time.Minute)
	require.Equal(t, StateIdle, d.State())

	// Idempotent.
	require.NoError(t, d.Stop())
	require.Equal(t, StateIdle, d.State())
}

func TestDetector_IgnoresSegmentsWhenIdle(t *testing.T) {
	d, err := New(NewMockSource(), WithPhrase(phrase), WithClock(clock.NewFake(t0)))
	require.NoError(t, err)

	d.HandleSegment(final(phrase))
	require.Empty(t, drain(d))
	require.Equal(t, StateIdle, d.State())
}

func TestDetector_StartFromCooldownResumesListening(t *testing.T) {
	d, src, clk := newStartedDetector(t)

	d.HandleSegment(final(phrase))
	require.Equal(t, StateCooldown, d.State())

	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, StateListening, d.State())
	require.Zero(t, clk.Pending())
	require.Equal(t, 1, src.Starts())

	require.ErrorIs(t, d.Start(context.Background()), ErrAlreadyListening)
}

func TestDetector_NoSpeechIsNotAnError(t *testing.T) {
	d, _, clk := newStartedDetector(t)

	d.HandleError(ErrNoSpeech)
	d.HandleError(errors.Join(ErrNoSpeech, errors.New("timeout")))

	require.Equal(t, StateListening, d.State())
	require.Empty(t, drain(d))
	require.Zero(t, clk.Pending())
}

func TestDetector_ErrorRestartsInContinuousMode(t *testing.T) {
	d, src, clk := newStartedDetector(t, WithRestartDelay(time.Second))

	boom := errors.New("network")
	d.HandleError(boom)

	events := drain(d)
	require.Equal(t, StateError, d.State())
	require.Equal(t, []State{StateError}, states(events))
	require.ErrorIs(t, events[len(events)-1].Err, boom)

	clk.Advance(time.Second)
	require.Equal(t, StateListening, d.State())
	require.Equal(t, 2, src.Starts())
}

// gatedSource blocks every Start after the first until release is closed.
type gatedSource struct {
	*MockSource
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) Start(ctx context.Context) error {
	if g.Starts() > 0 {
		close(g.entered)
		<-g.release
	}
	return g.MockSource.Start(ctx)
}

func TestDetector_StopDuringRestartLeavesSourceStopped(t *testing.T) {
	clk := clock.NewFake(t0)
	src := &gatedSource{
		MockSource: NewMockSource(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	d, err := New(src, WithPhrase(phrase), WithClock(clk), WithRestartDelay(time.Second))
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	d.HandleError(errors.New("network"))
	require.Equal(t, StateError, d.State())

	advanced := make(chan struct{})
	go func() {
		clk.Advance(time.Second)
		close(advanced)
	}()

	<-src.entered
	require.NoError(t, d.Stop())
	close(src.release)
	<-advanced

	require.Equal(t, StateIdle, d.State())
	require.False(t, src.Running())
	require.Equal(t, 2, src.Starts())
}

func TestDetector_RestartLimit(t *testing.T) {
	d, src, clk := newStartedDetector(t, WithRestartDelay(time.Second), WithMaxRestarts(2))

	src.FailStarts(errors.New("still down"), errors.New("still down"))
	d.HandleError(errors.New("network"))

	clk.Advance(time.Second)
	clk.Advance(time.Second)
	clk.Advance(time.Second)

	require.Equal(t, StateError, d.State())
	require.Equal(t, 3, src.Starts())
	require.Zero(t, clk.Pending())
}

func TestDetector_NonContinuousStaysInError(t *testing.T) {
	d, src, clk := newStartedDetector(t, WithContinuous(false))

	d.HandleError(errors.New("network"))

	require.Equal(t, StateError, d.State())
	require.Zero(t, clk.Pending())
	require.Equal(t, 1, src.Starts())
}

func TestDetector_ConsumesSource(t *testing.T) {
	d, src, _ := newStartedDetector(t)

	src.Say("mirror mirror on the wall")

	require.Eventually(t, func() bool {
		return d.State() == StateCooldown
	}, time.Second, 5*time.Millisecond)

	src.Fail(ErrNoSpeech)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateCooldown, d.State())
}

func TestDetector_StartFailure(t *testing.T) {
	src := NewMockSource()
	src.FailStarts(errors.New("mic denied"))

	d, err := New(src, WithPhrase(phrase), WithClock(clock.NewFake(t0)))
	require.NoError(t, err)

	require.Error(t, d.Start(context.Background()))
	require.Equal(t, StateError, d.State())

	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, StateListening, d.State())
	require.NoError(t, d.Stop())
}
