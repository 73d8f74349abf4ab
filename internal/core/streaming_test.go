package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestCountingReader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int64
		wantErr bool
	}{
		{"unlimited", strings.Repeat("x", 1000), 0, false},
		{"under limit", "hello", 10, false},
		{"exactly at limit", "hello", 5, false},
		{"one byte over", "hello!", 5, true},
		{"far over", strings.Repeat("x", 1000), 5, true},
		{"empty", "", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCountingReader(strings.NewReader(tt.input), tt.limit)
			got, err := io.ReadAll(r)

			if tt.wantErr {
				if !errors.Is(err, ErrFileTooLarge) {
					t.Fatalf("error = %v, want ErrFileTooLarge", err)
				}
				if r.BytesRead > tt.limit+1 {
					t.Errorf("BytesRead = %d, read past limit+1", r.BytesRead)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.input {
				t.Errorf("got %q, want %q", got, tt.input)
			}
			if r.BytesRead != int64(len(tt.input)) {
				t.Errorf("BytesRead = %d, want %d", r.BytesRead, len(tt.input))
			}
		})
	}
}

func TestCountingReader_SmallReads(t *testing.T) {
	input := bytes.Repeat([]byte("ab"), 50)
	r := NewCountingReader(iotest.OneByteReader(bytes.NewReader(input)), 100)

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Error("content mismatch")
	}
}

func TestCountingReader_PassesErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	r := NewCountingReader(io.MultiReader(strings.NewReader("abc"), iotest.ErrReader(boom)), 0)

	_, err := io.ReadAll(r)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if r.BytesRead != 3 {
		t.Errorf("BytesRead = %d, want 3", r.BytesRead)
	}
}
