package stats

import (
	"math"
	"testing"

	"github.com/starford/hypnos/internal/band"
	"github.com/starford/hypnos/internal/loader"
)

func tableOf(rows ...map[string]float64) *loader.Table {
	t := &loader.Table{Source: "test", Bands: band.Canonical}
	for _, values := range rows {
		t.Rows = append(t.Rows, loader.Row{Time: "2025-01-01 00:00:00", Values: values})
	}
	return t
}

func TestSummarize_BandStats(t *testing.T) {
	tbl := tableOf(
		map[string]float64{"Delta": 10, "Theta": 5, "Alpha": 0, "Beta": 0, "Gamma": 0},
		map[string]float64{"Delta": 20, "Theta": 5, "Alpha": 0, "Beta": 0, "Gamma": 0},
		map[string]float64{"Delta": 30, "Theta": 5, "Alpha": 0, "Beta": 0, "Gamma": 0},
	)
	stats, _ := Summarize(tbl)

	byName := map[string]BandStat{}
	for _, s := range stats {
		byName[s.Band] = s
	}

	d := byName["Delta"]
	if d.Mean != 20 {
		t.Errorf("Delta mean = %v, want 20", d.Mean)
	}
	if d.Min != 10 || d.Max != 30 {
		t.Errorf("Delta min/max = %v/%v, want 10/30", d.Min, d.Max)
	}
	// Sample std of {10,20,30} is 10.
	if math.Abs(d.Std-10) > 1e-9 {
		t.Errorf("Delta std = %v, want 10", d.Std)
	}
	if th := byName["Theta"]; th.Std != 0 {
		t.Errorf("constant series std = %v, want 0", th.Std)
	}
}

func TestSummarize_Shares(t *testing.T) {
	tbl := tableOf(map[string]float64{"Delta": 40, "Theta": 30, "Alpha": 20, "Beta": 10, "Gamma": 0})
	_, a := Summarize(tbl)
	if !a.Valid {
		t.Fatal("expected valid analysis")
	}
	if a.Shares["Delta"] != 40 {
		t.Errorf("Delta share = %v, want 40", a.Shares["Delta"])
	}
	var total float64
	for _, share := range a.Shares {
		total += share
	}
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("shares sum to %v, want 100", total)
	}
}

func TestSummarize_Score(t *testing.T) {
	// Shares: Delta 40, Theta 30, Alpha 20, Beta 10, Gamma 0.
	// Score = 0.4*40 + 0.3*30 + 0.2*90 + 0.1*100 = 53.
	tbl := tableOf(map[string]float64{"Delta": 40, "Theta": 30, "Alpha": 20, "Beta": 10, "Gamma": 0})
	_, a := Summarize(tbl)
	if a.Score != 53 {
		t.Errorf("score = %d, want 53", a.Score)
	}
	if a.Quality != QualityFair {
		t.Errorf("quality = %q, want %q", a.Quality, QualityFair)
	}
}

func TestSummarize_ScoreMonotonicInDelta(t *testing.T) {
	low := tableOf(map[string]float64{"Delta": 10, "Theta": 20, "Alpha": 20, "Beta": 30, "Gamma": 20})
	high := tableOf(map[string]float64{"Delta": 60, "Theta": 20, "Alpha": 10, "Beta": 5, "Gamma": 5})
	_, aLow := Summarize(low)
	_, aHigh := Summarize(high)
	if aHigh.Score <= aLow.Score {
		t.Errorf("more deep-sleep share should score higher: %d <= %d", aHigh.Score, aLow.Score)
	}
}

func TestSummarize_ScoreBounds(t *testing.T) {
	all := tableOf(map[string]float64{"Delta": 100, "Theta": 0, "Alpha": 0, "Beta": 0, "Gamma": 0})
	none := tableOf(map[string]float64{"Delta": 0, "Theta": 0, "Alpha": 0, "Beta": 50, "Gamma": 50})
	_, aAll := Summarize(all)
	_, aNone := Summarize(none)
	for _, a := range []Analysis{aAll, aNone} {
		if a.Score < 0 || a.Score > 100 {
			t.Errorf("score %d out of [0,100]", a.Score)
		}
	}
}

func TestSummarize_ZeroPowerInvalid(t *testing.T) {
	tbl := tableOf(map[string]float64{"Delta": 0, "Theta": 0, "Alpha": 0, "Beta": 0, "Gamma": 0})
	_, a := Summarize(tbl)
	if a.Valid {
		t.Error("zero total power should be invalid")
	}
}

func TestSummarize_Deterministic(t *testing.T) {
	tbl := tableOf(
		map[string]float64{"Delta": 25.5, "Theta": 30.2, "Alpha": 20.1, "Beta": 15.8, "Gamma": 8.4},
		map[string]float64{"Delta": 26.1, "Theta": 29.8, "Alpha": 19.7, "Beta": 16.2, "Gamma": 8.2},
	)
	_, a1 := Summarize(tbl)
	_, a2 := Summarize(tbl)
	if a1.Score != a2.Score || a1.Quality != a2.Quality {
		t.Errorf("analysis not deterministic: %+v vs %+v", a1, a2)
	}
}

func TestQualityLabels(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, QualityExcellent},
		{80, QualityExcellent},
		{79, QualityGood},
		{60, QualityGood},
		{59, QualityFair},
		{40, QualityFair},
		{39, QualityPoor},
		{0, QualityPoor},
	}
	for _, c := range cases {
		if got := qualityLabel(c.score); got != c.want {
			t.Errorf("qualityLabel(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}
