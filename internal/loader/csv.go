package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// csvEncodings is the ordered ladder of text encodings tried against a CSV
// file; the first one that decodes cleanly wins. A nil encoding means
// strict UTF-8.
var csvEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8", nil},
	{"gbk", simplifiedchinese.GBK},
	{"utf-8-sig", unicode.UTF8BOM},
	{"iso-8859-1", charmap.ISO8859_1},
}

func loadCSV(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read csv: %w", err)
	}

	var records [][]string
	decoded := false
	for _, candidate := range csvEncodings {
		text, decErr := decodeBytes(raw, candidate.enc)
		if decErr != nil {
			continue
		}
		r := csv.NewReader(bytes.NewReader(text))
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		records, err = r.ReadAll()
		if err != nil {
			continue
		}
		decoded = true
		break
	}
	if !decoded {
		return nil, fmt.Errorf("loader: csv encoding not recognized: %s", path)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return tableFromGrid(records[0], records[1:]), nil
}

func decodeBytes(raw []byte, enc encoding.Encoding) ([]byte, error) {
	if enc == nil {
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("loader: invalid utf-8")
		}
		return raw, nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(out) {
		return nil, fmt.Errorf("loader: decode produced invalid utf-8")
	}
	return out, nil
}
