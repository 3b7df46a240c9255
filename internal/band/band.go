// Package band parses raw EEG samples into named frequency-band vectors.
package band

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Canonical band names, always present in every extracted Vector.
const (
	Delta = "Delta"
	Theta = "Theta"
	Alpha = "Alpha"
	Beta  = "Beta"
	Gamma = "Gamma"
)

// Canonical is the fixed order of the five canonical bands.
var Canonical = []string{Delta, Theta, Alpha, Beta, Gamma}

// knownNames is the exact (case-sensitive) set of value names the extractor
// recognises in delimited text: the canonical bands, their low/high splits,
// and the auxiliary device scalars.
var knownNames = map[string]struct{}{
	Delta: {}, Theta: {}, Alpha: {}, Beta: {}, Gamma: {},
	"LowAlpha": {}, "HighAlpha": {},
	"LowBeta": {}, "HighBeta": {},
	"LowGamma": {}, "HighGamma": {},
	"Attention": {}, "Meditation": {}, "SignalQuality": {},
}

// packetMarker prefixes hex-encoded device packets.
const packetMarker = "AA AA"

// Vector maps band (and auxiliary scalar) names to magnitudes. Vectors
// produced by Extract always carry the five canonical bands, zero-valued
// when absent from the input.
type Vector map[string]float64

// Band returns the magnitude for name, defaulting to zero.
func (v Vector) Band(name string) float64 {
	return v[name]
}

// Split returns the low/high magnitudes for a canonical band, falling back
// to the flat value when the input carried no split (the device sends a
// single magnitude per band; both halves mirror it).
func (v Vector) Split(name string) (low, high float64) {
	low, okLow := v["Low"+name]
	high, okHigh := v["High"+name]
	if !okLow {
		low = v[name]
	}
	if !okHigh {
		high = v[name]
	}
	return low, high
}

// Flat returns the flat magnitude for a canonical band. When only a
// low/high split is present the two halves are averaged.
func (v Vector) Flat(name string) float64 {
	if val, ok := v[name]; ok {
		return val
	}
	low, okLow := v["Low"+name]
	high, okHigh := v["High"+name]
	if okLow || okHigh {
		return (low + high) / 2
	}
	return 0
}

// Raw is the tagged union of input shapes the extractor accepts.
type Raw interface{ isRaw() }

// Mapping is a decoded name→magnitude object.
type Mapping map[string]float64

// DelimitedText is a "Name1 value1 Name2 value2 ..." string.
type DelimitedText string

// Packet is a hex-encoded device packet carrying the AA AA marker.
type Packet string

func (Mapping) isRaw()       {}
func (DelimitedText) isRaw() {}
func (Packet) isRaw()        {}

// Classify maps a decoded JSON payload onto a Raw variant. Objects become
// Mappings; strings starting with the packet marker become Packets; every
// other string is delimited text. Anything else degrades to an opaque
// delimited-text rendering, which extracts as an all-zero vector.
func Classify(data json.RawMessage) Raw {
	var asMap map[string]float64
	if err := json.Unmarshal(data, &asMap); err == nil {
		return Mapping(asMap)
	}
	var asStr string
	if err := json.Unmarshal(data, &asStr); err == nil {
		if strings.HasPrefix(asStr, packetMarker) {
			return Packet(asStr)
		}
		return DelimitedText(asStr)
	}
	return DelimitedText(string(data))
}

// Extract converts a raw sample into a Vector. The five canonical bands are
// always present; malformed tokens contribute zero instead of failing.
func Extract(raw Raw) Vector {
	var v Vector
	switch r := raw.(type) {
	case Mapping:
		v = extractMapping(r)
	case DelimitedText:
		v = extractText(string(r))
	case Packet:
		// Re-parse the packet's delimited representation.
		v = extractText(decodePacket(string(r)))
	default:
		v = Vector{}
	}
	for _, name := range Canonical {
		if _, ok := v[name]; !ok {
			v[name] = 0
		}
	}
	return v
}

func extractMapping(m Mapping) Vector {
	v := make(Vector, len(m))
	for name, val := range m {
		if _, ok := knownNames[name]; ok {
			v[name] = val
		}
	}
	return v
}

// extractText scans tokens pairwise: a known name causes the following
// token to be parsed as a number. Comma decimal separators are accepted;
// unparsable values yield zero for that band.
func extractText(s string) Vector {
	v := Vector{}
	parts := strings.Fields(s)
	for i, part := range parts {
		if _, ok := knownNames[part]; !ok || i+1 >= len(parts) {
			continue
		}
		val, err := strconv.ParseFloat(strings.ReplaceAll(parts[i+1], ",", "."), 64)
		if err != nil {
			v[part] = 0
			continue
		}
		v[part] = val
	}
	return v
}

// decodePacket strips the AA AA marker and, when the remaining tokens are
// all hex byte pairs, decodes them to ASCII so the embedded delimited text
// can be re-parsed. Packets whose payload is not pure hex are treated as
// delimited text directly.
func decodePacket(s string) string {
	payload := strings.TrimSpace(strings.TrimPrefix(s, packetMarker))
	tokens := strings.Fields(payload)
	if len(tokens) == 0 {
		return ""
	}
	for _, tok := range tokens {
		if len(tok) != 2 || !isHex(tok) {
			return payload
		}
	}
	raw, err := hex.DecodeString(strings.Join(tokens, ""))
	if err != nil {
		return payload
	}
	return string(raw)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// FormatLine renders the canonical five bands in the log-artifact line
// format ("Delta n Theta n Alpha n Beta n Gamma n").
func FormatLine(v Vector) string {
	var b strings.Builder
	for i, name := range Canonical {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s %s", name, strconv.FormatFloat(v.Flat(name), 'f', -1, 64))
	}
	return b.String()
}
