// Package loader reads recording samples from CSV, Excel, and text sources
// into a uniform table with normalized band columns.
package loader

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/hypnos/internal/apperr"
	"github.com/starford/hypnos/internal/band"
)

// Row is one cleaned sample row. Values is keyed by canonical band name.
type Row struct {
	Time   string
	Values map[string]float64
}

// Table is the uniform tabular result of loading a data file. Bands lists
// the canonical band columns present in the source, in canonical order.
type Table struct {
	Source string
	Bands  []string
	Rows   []Row
}

// columnAliases maps lower-cased source column names to canonical ones.
// The canonical time column absorbs the usual timestamp spellings.
var columnAliases = map[string]string{
	"delta": band.Delta, "theta": band.Theta, "alpha": band.Alpha,
	"beta": band.Beta, "gamma": band.Gamma,
	"lowalpha": "LowAlpha", "low_alpha": "LowAlpha", "highalpha": "HighAlpha", "high_alpha": "HighAlpha",
	"lowbeta": "LowBeta", "low_beta": "LowBeta", "highbeta": "HighBeta", "high_beta": "HighBeta",
	"lowgamma": "LowGamma", "low_gamma": "LowGamma", "highgamma": "HighGamma", "high_gamma": "HighGamma",
	"time": "Time", "timestamp": "Time", "datetime": "Time", "时间": "Time",
}

// Load reads the file at path, dispatching purely on its extension:
// .xls/.xlsx → spreadsheet, .csv → delimited with encoding detection,
// .txt/.log → line-oriented "<timestamp> - <band text>". Returns
// apperr.ErrUnsupportedFormat for anything else and apperr.ErrEmptyDataset
// when nothing survives cleaning.
func Load(path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		t   *Table
		err error
	)
	switch ext {
	case ".xls", ".xlsx":
		t, err = loadExcel(path)
	case ".csv":
		t, err = loadCSV(path)
	case ".txt", ".log":
		t, err = loadText(path)
	default:
		return nil, fmt.Errorf("loader: %w: %s", apperr.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	t.Source = filepath.Base(path)
	if len(t.Rows) == 0 || len(t.Bands) == 0 {
		return nil, fmt.Errorf("loader: %s: %w", t.Source, apperr.ErrEmptyDataset)
	}
	return t, nil
}

// tableFromGrid builds a Table from a header row plus data rows, applying
// column normalization, numeric coercion, and row-level cleaning: a row
// with any unresolvable band cell is excluded.
func tableFromGrid(header []string, rows [][]string) *Table {
	type column struct {
		name string
		idx  int
	}
	var bandCols []column
	splitCols := map[string]int{}
	timeIdx := -1

	for i, raw := range header {
		name := normalizeColumn(raw)
		switch {
		case name == "Time":
			if timeIdx < 0 {
				timeIdx = i
			}
		case isCanonical(name):
			bandCols = append(bandCols, column{name: name, idx: i})
		case name != "":
			splitCols[name] = i
		}
	}

	t := &Table{}
	seen := map[string]bool{}
	for _, c := range bandCols {
		if !seen[c.name] {
			seen[c.name] = true
		}
	}
	// Splits stand in for a missing flat band.
	for _, name := range band.Canonical {
		_, low := splitCols["Low"+name]
		_, high := splitCols["High"+name]
		if !seen[name] && (low || high) {
			seen[name] = true
		}
	}
	for _, name := range band.Canonical {
		if seen[name] {
			t.Bands = append(t.Bands, name)
		}
	}

	for _, cells := range rows {
		row := Row{Values: make(map[string]float64, len(t.Bands))}
		if timeIdx >= 0 && timeIdx < len(cells) {
			row.Time = strings.TrimSpace(cells[timeIdx])
		}
		ok := true
		for _, c := range bandCols {
			val, err := parseCell(cells, c.idx)
			if err != nil {
				ok = false
				break
			}
			row.Values[c.name] = val
		}
		if ok {
			for _, name := range band.Canonical {
				if _, have := row.Values[name]; have {
					continue
				}
				lowIdx, haveLow := splitCols["Low"+name]
				highIdx, haveHigh := splitCols["High"+name]
				if !haveLow && !haveHigh {
					continue
				}
				low, errLow := parseCell(cells, lowIdx)
				high, errHigh := parseCell(cells, highIdx)
				if (haveLow && errLow != nil) || (haveHigh && errHigh != nil) {
					ok = false
					break
				}
				switch {
				case haveLow && haveHigh:
					row.Values[name] = (low + high) / 2
				case haveLow:
					row.Values[name] = low
				default:
					row.Values[name] = high
				}
			}
		}
		if ok && len(row.Values) > 0 {
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func parseCell(cells []string, idx int) (float64, error) {
	if idx < 0 || idx >= len(cells) {
		return 0, fmt.Errorf("loader: missing cell")
	}
	s := strings.TrimSpace(strings.ReplaceAll(cells[idx], ",", "."))
	if s == "" {
		return 0, fmt.Errorf("loader: empty cell")
	}
	return strconv.ParseFloat(s, 64)
}

func normalizeColumn(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := columnAliases[key]; ok {
		return canonical
	}
	return strings.TrimSpace(raw)
}

func isCanonical(name string) bool {
	for _, c := range band.Canonical {
		if name == c {
			return true
		}
	}
	return false
}
