package classify

import (
	"bytes"
	"testing"
	"unicode/utf16"
)

func utf16Bytes(s string, bigEndian bool) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, 2*len(units))
	for _, u := range units {
		if bigEndian {
			out = append(out, byte(u>>8), byte(u))
		} else {
			out = append(out, byte(u), byte(u>>8))
		}
	}
	return out
}

func TestClassify_Text(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		want     string
		detected Detected
	}{
		{"empty", []byte{}, "", DetectedUTF8},
		{"ascii", []byte("Hello"), "Hello", DetectedUTF8},
		{"multibyte utf-8", []byte("Grüße 世界 🎉"), "Grüße 世界 🎉", DetectedUTF8},
		{"utf-8 bom kept", []byte("\xef\xbb\xbfhi"), "\ufeffhi", DetectedUTF8},
		{"utf-16le", []byte{0xFF, 0xFE, 0x48, 0x00, 0x69, 0x00}, "Hi", DetectedUTF16LE},
		{"utf-16be", []byte{0xFE, 0xFF, 0x00, 0x48, 0x00, 0x69}, "Hi", DetectedUTF16BE},
		{"utf-16le surrogate pair", append([]byte{0xFF, 0xFE}, utf16Bytes("a🎉b", false)...), "a🎉b", DetectedUTF16LE},
		{"utf-16be cjk", append([]byte{0xFE, 0xFF}, utf16Bytes("日本語", true)...), "日本語", DetectedUTF16BE},
		{"utf-16le embedded nul", []byte{0xFF, 0xFE, 0x00, 0x00}, "\x00", DetectedUTF16LE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			if got.Kind != Text {
				t.Fatalf("Kind = %v, want text", got.Kind)
			}
			if got.Text != tt.want {
				t.Errorf("Text = %q, want %q", got.Text, tt.want)
			}
			if got.Detected != tt.detected {
				t.Errorf("Detected = %q, want %q", got.Detected, tt.detected)
			}
			if got.Raw != nil {
				t.Errorf("Raw = % x, want nil for text", got.Raw)
			}
		})
	}
}

func TestClassify_Binary(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"single invalid byte", []byte{0xFF}},
		{"no bom", []byte{0x00, 0x9F, 0x92, 0x96}},
		{"png header", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
		{"le bom only", []byte{0xFF, 0xFE}},
		{"be bom only", []byte{0xFE, 0xFF}},
		{"le odd remainder", []byte{0xFF, 0xFE, 0x48, 0x00, 0x69}},
		{"be odd remainder", []byte{0xFE, 0xFF, 0x00}},
		{"le unpaired high surrogate", []byte{0xFF, 0xFE, 0x3D, 0xD8, 0x41, 0x00}},
		{"le trailing high surrogate", []byte{0xFF, 0xFE, 0x41, 0x00, 0x3D, 0xD8}},
		{"be lone low surrogate", []byte{0xFE, 0xFF, 0xDC, 0x00}},
		{"reversed bom pair", []byte{0xFE, 0xFE, 0x00, 0x41}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := append([]byte(nil), tt.input...)

			got := Classify(tt.input)
			if got.Kind != Binary {
				t.Fatalf("Kind = %v (text %q), want binary", got.Kind, got.Text)
			}
			if !bytes.Equal(got.Raw, original) {
				t.Errorf("Raw = % x, want % x", got.Raw, original)
			}
			if got.Detected != DetectedBinary {
				t.Errorf("Detected = %q, want %q", got.Detected, DetectedBinary)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if Text.String() != "text" || Binary.String() != "binary" {
		t.Errorf("String() = %q/%q", Text.String(), Binary.String())
	}
}
