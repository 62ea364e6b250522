package emotion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatistics_Empty(t *testing.T) {
	p, _ := newTestProcessor(t)

	stats := p.Statistics()
	require.Zero(t, stats.Samples)
	require.Empty(t, stats.Dominant)
	require.Equal(t, 1.0, stats.Stability)
	require.Zero(t, stats.Volatility)
}

func TestComputeStatistics(t *testing.T) {
	history := []Frame{
		{Emotions: []Score{{"joy", 0.2}, {"sad", 0.8}}},
		{Emotions: []Score{{"joy", 0.6}, {"sad", 0.4}}},
		{Emotions: []Score{{"joy", 1.0}, {"sad", 0.0}}},
	}

	stats := computeStatistics(history)

	require.Equal(t, 3, stats.Samples)
	require.InDelta(t, 0.6, stats.Mean["joy"], 1e-12)
	require.InDelta(t, 0.4, stats.Mean["sad"], 1e-12)

	// Population variance: ((0.4)^2 + 0 + (0.4)^2) / 3
	require.InDelta(t, 0.32/3, stats.Variance["joy"], 1e-12)
	require.InDelta(t, 0.32/3, stats.Variance["sad"], 1e-12)

	require.Equal(t, "joy", stats.Dominant)
	require.InDelta(t, 1/(1+0.32/3), stats.Stability, 1e-12)

	// Every adjacent pair moves each category by 0.4.
	require.InDelta(t, 0.4, stats.Volatility, 1e-12)
}

func TestComputeStatistics_MissingCategoryCountsAsZero(t *testing.T) {
	history := []Frame{
		{Emotions: []Score{{"joy", 0.5}}},
		{Emotions: []Score{{"fear", 0.3}}},
	}

	stats := computeStatistics(history)

	// joy 0.5 -> 0 and fear 0 -> 0.3
	require.InDelta(t, 0.4, stats.Volatility, 1e-12)
	require.Zero(t, stats.Variance["joy"])
	require.Equal(t, "joy", stats.Dominant)
}

func TestStatistics_FromProcessor(t *testing.T) {
	p, _ := newTestProcessor(t)

	for i := 0; i < 4; i++ {
		p.Process([]Score{{"calmness", 3}, {"anger", 1}})
	}

	stats := p.Statistics()
	require.Equal(t, 4, stats.Samples)
	require.Equal(t, "calmness", stats.Dominant)
	require.InDelta(t, 1.0, stats.Stability, 1e-12)
	require.InDelta(t, 0.0, stats.Volatility, 1e-12)
}
