// Package classify decides whether a buffer of unknown encoding is text or
// binary.
//
// The check is deliberately narrow: strict UTF-8 first, then UTF-16 when a
// byte-order mark says so, otherwise binary. It does not sniff other
// charsets and does not recognise a UTF-8 BOM.
package classify

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Kind is the outcome of classification.
type Kind int

const (
	Binary Kind = iota
	Text
)

func (k Kind) String() string {
	if k == Text {
		return "text"
	}
	return "binary"
}

// Detected names the interpretation that produced a result.
type Detected string

const (
	DetectedUTF8    Detected = "utf-8"
	DetectedUTF16LE Detected = "utf-16le"
	DetectedUTF16BE Detected = "utf-16be"
	DetectedBinary  Detected = "binary"
)

// Result holds either decoded text or the original bytes.
type Result struct {
	Kind     Kind
	Text     string // set when Kind is Text
	Raw      []byte // original input when Kind is Binary
	Detected Detected
}

var (
	bomLE = [2]byte{0xFF, 0xFE}
	bomBE = [2]byte{0xFE, 0xFF}
)

// Classify interprets data as UTF-8, or as UTF-16 when it starts with a
// byte-order mark, and falls back to binary. It never fails: any input
// that cannot be decoded cleanly is returned unchanged as binary.
func Classify(data []byte) Result {
	if utf8.Valid(data) {
		return Result{Kind: Text, Text: string(data), Detected: DetectedUTF8}
	}

	if len(data) < 2 {
		return binaryResult(data)
	}

	var (
		order    binary.ByteOrder
		detected Detected
	)
	switch [2]byte{data[0], data[1]} {
	case bomLE:
		order, detected = binary.LittleEndian, DetectedUTF16LE
	case bomBE:
		order, detected = binary.BigEndian, DetectedUTF16BE
	default:
		return binaryResult(data)
	}

	units, ok := codeUnits(data[2:], order)
	if !ok {
		return binaryResult(data)
	}
	s, ok := decodeStrict(units)
	if !ok {
		return binaryResult(data)
	}
	return Result{Kind: Text, Text: s, Detected: detected}
}

func binaryResult(data []byte) Result {
	return Result{Kind: Binary, Raw: data, Detected: DetectedBinary}
}

// codeUnits splits b into 16-bit units. b must be non-empty and of even
// length.
func codeUnits(b []byte, order binary.ByteOrder) ([]uint16, bool) {
	if len(b) < 2 || len(b)%2 != 0 {
		return nil, false
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = order.Uint16(b[2*i:])
	}
	return units, true
}

// decodeStrict assembles UTF-16 code units into a string, rejecting unpaired
// surrogates instead of substituting U+FFFD the way utf16.Decode does.
func decodeStrict(units []uint16) (string, bool) {
	var b strings.Builder
	b.Grow(len(units))

	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			b.WriteRune(u)
			continue
		}
		if i+1 >= len(units) {
			return "", false
		}
		r := utf16.DecodeRune(u, rune(units[i+1]))
		if r == utf8.RuneError {
			return "", false
		}
		b.WriteRune(r)
		i++
	}
	return b.String(), true
}
