package emotion

import "sort"

// lerp performs linear interpolation between two values.
func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// clamp restricts a value to a range.
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Dominant returns the highest scoring category and its confidence.
//
// With two or more categories, confidence = min(1, 2*(top1-top2) + 0.5*top1).
// With one category the confidence is that category's score. With none,
// the dominant is "" and confidence 0. Ties keep the earlier category.
func Dominant(scores []Score) (string, float64) {
	switch len(scores) {
	case 0:
		return "", 0
	case 1:
		return scores[0].Name, scores[0].Score
	}

	top, second := 0, -1
	for i := 1; i < len(scores); i++ {
		switch {
		case scores[i].Score > scores[top].Score:
			second = top
			top = i
		case second < 0 || scores[i].Score > scores[second].Score:
			second = i
		}
	}

	top1 := scores[top].Score
	top2 := scores[second].Score
	confidence := 2*(top1-top2) + 0.5*top1
	if confidence > 1 {
		confidence = 1
	}
	return scores[top].Name, confidence
}

// TopN returns the n highest scoring categories in descending order.
// Equal scores keep their frame order. n <= 0 returns all categories.
func TopN(f Frame, n int) []Score {
	ranked := cloneScores(f.Emotions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

func normalize(scores []Score) []Score {
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	out := cloneScores(scores)
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i].Score /= sum
	}
	return out
}
