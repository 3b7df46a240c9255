package loader

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/starford/hypnos/internal/band"
)

// lineSeparator splits a log line into its timestamp and band-text halves.
const lineSeparator = " - "

// loadText reads a line-oriented log artifact. Each line is expected to be
// "<timestamp> - <band text>"; lines without the separator are treated as
// pure band text and default-timestamped. Unparsable lines are skipped.
func loadText(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open text: %w", err)
	}
	defer file.Close()

	t := &Table{Bands: append([]string(nil), band.Canonical...)}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ts := time.Now().Format("2006-01-02 15:04:05")
		raw := line
		if i := strings.Index(line, lineSeparator); i >= 0 {
			ts = line[:i]
			raw = line[i+len(lineSeparator):]
		}

		v := band.Extract(band.DelimitedText(raw))
		row := Row{Time: ts, Values: make(map[string]float64, len(band.Canonical))}
		for _, name := range band.Canonical {
			row.Values[name] = v.Flat(name)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: scan text: %w", err)
	}
	return t, nil
}
