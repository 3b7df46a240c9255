// Package stats derives per-band descriptive statistics and the
// deterministic sleep-quality analysis from a loaded table.
package stats

import (
	"math"

	"github.com/starford/hypnos/internal/band"
	"github.com/starford/hypnos/internal/loader"
)

// Quality labels for the sleep score breakpoints.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// BandStat holds descriptive statistics for one band over all rows.
type BandStat struct {
	Band string
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Analysis is the deterministic sleep-stage summary. Shares are percentages
// of total power per band. Valid is false when total power is zero, in
// which case Score and Quality are meaningless.
type Analysis struct {
	Shares  map[string]float64
	Score   int
	Quality string
	Valid   bool
	Rows    int
}

// Summarize computes per-band statistics and the sleep analysis. Pure and
// deterministic: identical tables always yield identical output.
func Summarize(t *loader.Table) ([]BandStat, Analysis) {
	stats := make([]BandStat, 0, len(t.Bands))
	sums := make(map[string]float64, len(t.Bands))

	for _, name := range t.Bands {
		s := BandStat{Band: name, Min: math.Inf(1), Max: math.Inf(-1)}
		var sum, sumSq float64
		n := 0
		for _, row := range t.Rows {
			val, ok := row.Values[name]
			if !ok {
				continue
			}
			n++
			sum += val
			sumSq += val * val
			s.Min = math.Min(s.Min, val)
			s.Max = math.Max(s.Max, val)
		}
		if n == 0 {
			s.Min, s.Max = 0, 0
			stats = append(stats, s)
			continue
		}
		s.Mean = sum / float64(n)
		if n > 1 {
			// Sample standard deviation (n-1 denominator).
			variance := (sumSq - float64(n)*s.Mean*s.Mean) / float64(n-1)
			if variance > 0 {
				s.Std = math.Sqrt(variance)
			}
		}
		sums[name] = sum
		stats = append(stats, s)
	}

	return stats, analyze(sums, len(t.Rows))
}

func analyze(sums map[string]float64, rows int) Analysis {
	a := Analysis{Shares: map[string]float64{}, Rows: rows}

	var total float64
	for _, sum := range sums {
		total += sum
	}
	if total == 0 {
		return a
	}
	a.Valid = true

	for name, sum := range sums {
		a.Shares[name] = sum / total * 100
	}

	score := 0.4*a.Shares[band.Delta] +
		0.3*a.Shares[band.Theta] +
		0.2*(100-a.Shares[band.Beta]) +
		0.1*(100-a.Shares[band.Gamma])
	a.Score = clampScore(int(math.Round(score)))
	a.Quality = qualityLabel(a.Score)
	return a
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func qualityLabel(score int) string {
	switch {
	case score >= 80:
		return QualityExcellent
	case score >= 60:
		return QualityGood
	case score >= 40:
		return QualityFair
	default:
		return QualityPoor
	}
}
