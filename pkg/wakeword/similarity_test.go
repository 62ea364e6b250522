package wakeword

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevenshtein(t *testing.T) {
	require.Equal(t, 0, Levenshtein("", ""))
	require.Equal(t, 3, Levenshtein("", "abc"))
	require.Equal(t, 3, Levenshtein("kitten", "sitting"))
	require.Equal(t, 1, Levenshtein("wall", "wal"))
	require.Equal(t, 1, Levenshtein("spiegel", "spíegel"))
}

func TestSimilarity(t *testing.T) {
	const phrase = "mirror mirror on the wall"

	t.Run("exact match", func(t *testing.T) {
		require.Equal(t, 1.0, Similarity(phrase, phrase))
	})

	t.Run("case and surrounding space ignored", func(t *testing.T) {
		require.Equal(t, 1.0, Similarity("  Mirror Mirror ON the Wall ", phrase))
	})

	t.Run("containment scores length ratio", func(t *testing.T) {
		require.InDelta(t, 13.0/25.0, Similarity("mirror mirror", phrase), 1e-12)
		require.InDelta(t, 25.0/31.0, Similarity("oh mirror mirror on the wall ok", phrase), 1e-12)
	})

	t.Run("edit distance", func(t *testing.T) {
		// Five edits over the 25-rune phrase.
		require.InDelta(t, 0.8, Similarity("marroh mirror on da wall", phrase), 1e-12)
		require.InDelta(t, 0.24, Similarity("what is the weather", phrase), 1e-12)
	})

	t.Run("runes not bytes", func(t *testing.T) {
		require.InDelta(t, 1-1.0/7.0, Similarity("spíegel", "spiegel"), 1e-12)
	})

	t.Run("empty transcript", func(t *testing.T) {
		require.Zero(t, Similarity("", phrase))
		require.Equal(t, 1.0, Similarity("", "  "))
	})
}

func TestBestMatch(t *testing.T) {
	phrases := []string{"mirror mirror on the wall", "magic mirror on the wall", "hey aura"}

	m := bestMatch("mirror mirror on the wall", phrases, 0.7)
	require.Equal(t, "mirror mirror on the wall", m.phrase)
	require.Equal(t, 1.0, m.score)
	require.Equal(t, []string{"magic mirror on the wall"}, m.others)

	m = bestMatch("Magic mirror on the wall", phrases, 0.7)
	require.Equal(t, "magic mirror on the wall", m.phrase)
	require.Equal(t, []string{"mirror mirror on the wall"}, m.others)

	m = bestMatch("good morning", phrases, 0.7)
	require.Less(t, m.score, 0.7)
	require.Empty(t, m.others)
}
