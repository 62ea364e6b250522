package wakeword

import "strings"

// Similarity scores how closely a transcript matches a phrase, in [0, 1].
//
// Both strings are lowercased and trimmed. An exact match scores 1. If one
// contains the other the score is len(shorter)/len(longer). Otherwise the
// score is 1 - edit distance / max length. Lengths are counted in runes.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 1
	}

	la, lb := len([]rune(a)), len([]rune(b))
	longer := max(la, lb)
	if longer == 0 {
		return 1
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return float64(min(la, lb)) / float64(longer)
	}

	return 1 - float64(Levenshtein(a, b))/float64(longer)
}

// Levenshtein returns the single-character insert/delete/substitute edit
// distance between a and b, over runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	return prev[len(rb)]
}

// firstToken returns the lowercased first word of s.
func firstToken(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// match is the best-scoring phrase for a transcript.
type match struct {
	phrase string
	score  float64
	others []string
}

// bestMatch scores text against every phrase. others lists the phrases
// other than the best that also reach threshold.
func bestMatch(text string, phrases []string, threshold float64) match {
	var best match
	bestIdx := -1
	scores := make([]float64, len(phrases))

	for i, phrase := range phrases {
		scores[i] = Similarity(text, phrase)
		if bestIdx < 0 || scores[i] > best.score {
			bestIdx = i
			best.phrase = phrase
			best.score = scores[i]
		}
	}

	for i, phrase := range phrases {
		if i != bestIdx && scores[i] >= threshold {
			best.others = append(best.others, phrase)
		}
	}
	return best
}
