package emotion

// Statistics computes rolling statistics over the current history.
func (p *Processor) Statistics() Statistics {
	p.mu.Lock()
	history := make([]Frame, len(p.history))
	copy(history, p.history)
	p.mu.Unlock()

	return computeStatistics(history)
}

func computeStatistics(history []Frame) Statistics {
	stats := Statistics{
		Mean:     make(map[string]float64),
		Variance: make(map[string]float64),
		Samples:  len(history),
	}

	var order []string
	values := make(map[string][]float64)
	for _, f := range history {
		for _, s := range f.Emotions {
			if _, ok := values[s.Name]; !ok {
				order = append(order, s.Name)
			}
			values[s.Name] = append(values[s.Name], s.Score)
		}
	}

	var totalVariance float64
	bestMean := 0.0
	for _, name := range order {
		vs := values[name]

		var sum float64
		for _, v := range vs {
			sum += v
		}
		mean := sum / float64(len(vs))

		var sq float64
		for _, v := range vs {
			sq += (v - mean) * (v - mean)
		}
		variance := sq / float64(len(vs))

		stats.Mean[name] = mean
		stats.Variance[name] = variance
		totalVariance += variance

		if stats.Dominant == "" || mean > bestMean {
			stats.Dominant = name
			bestMean = mean
		}
	}

	avgVariance := 0.0
	if len(order) > 0 {
		avgVariance = totalVariance / float64(len(order))
	}
	stats.Stability = 1 / (1 + avgVariance)
	stats.Volatility = volatility(history)

	return stats
}

// volatility averages the absolute score change over every pair of
// adjacent frames and every category present in either frame. A category
// missing from one side of a pair counts as zero there.
func volatility(history []Frame) float64 {
	var total float64
	var terms int

	for i := 1; i < len(history); i++ {
		prev := scoreMap(history[i-1].Emotions)
		cur := scoreMap(history[i].Emotions)

		for name, v := range cur {
			total += abs(v - prev[name])
			terms++
		}
		for name, v := range prev {
			if _, ok := cur[name]; !ok {
				total += abs(v)
				terms++
			}
		}
	}

	if terms == 0 {
		return 0
	}
	return total / float64(terms)
}

func scoreMap(scores []Score) map[string]float64 {
	m := make(map[string]float64, len(scores))
	for _, s := range scores {
		m[s.Name] = s.Score
	}
	return m
}
