package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/fileopen/internal/transcode"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Detect(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		data     []byte
		wantKind ContentKind
		wantText string
		wantExt  string
		wantEnc  string
	}{
		{
			name:     "plain utf-8",
			file:     "hello.txt",
			data:     []byte{0x48, 0x65, 0x6c, 0x6c, 0x6f},
			wantKind: ContentText,
			wantText: "Hello",
			wantExt:  "txt",
			wantEnc:  "utf-8",
		},
		{
			name:     "utf-16le with bom",
			file:     "hi.csv",
			data:     []byte{0xFF, 0xFE, 0x48, 0x00, 0x69, 0x00},
			wantKind: ContentText,
			wantText: "Hi",
			wantExt:  "csv",
			wantEnc:  "utf-16le",
		},
		{
			name:     "utf-16be with bom",
			file:     "hi.json",
			data:     []byte{0xFE, 0xFF, 0x00, 0x48, 0x00, 0x69},
			wantKind: ContentText,
			wantText: "Hi",
			wantExt:  "json",
			wantEnc:  "utf-16be",
		},
		{
			name:     "binary",
			file:     "blob.bin",
			data:     []byte{0x00, 0xC3, 0x28, 0xFF},
			wantKind: ContentBinary,
			wantExt:  "bin",
			wantEnc:  "binary",
		},
		{
			name:     "no extension",
			file:     "README",
			data:     []byte("readme"),
			wantKind: ContentText,
			wantText: "readme",
			wantEnc:  "utf-8",
		},
		{
			name:     "empty file",
			file:     "empty.toml",
			data:     []byte{},
			wantKind: ContentText,
			wantExt:  "toml",
			wantEnc:  "utf-8",
		},
	}

	var loader Loader
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFile(t, dir, tt.file, tt.data)

			res, err := loader.Load(context.Background(), Request{
				BaseDir: dir,
				Path:    tt.file,
				Span:    Span{Start: 5, End: 5 + len(tt.file)},
			})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if res.Content.Kind() != tt.wantKind {
				t.Fatalf("Kind = %v, want %v", res.Content.Kind(), tt.wantKind)
			}
			if tt.wantKind == ContentText && res.Content.Text() != tt.wantText {
				t.Errorf("Text = %q, want %q", res.Content.Text(), tt.wantText)
			}
			if tt.wantKind == ContentBinary && !bytes.Equal(res.Content.Bytes(), tt.data) {
				t.Errorf("Bytes = % x, want % x", res.Content.Bytes(), tt.data)
			}
			if res.Extension != tt.wantExt {
				t.Errorf("Extension = %q, want %q", res.Extension, tt.wantExt)
			}
			if res.AutoConvert() != (tt.wantExt != "") {
				t.Errorf("AutoConvert() = %v with extension %q", res.AutoConvert(), res.Extension)
			}
			if res.Encoding != tt.wantEnc {
				t.Errorf("Encoding = %q, want %q", res.Encoding, tt.wantEnc)
			}
			if res.Explicit {
				t.Error("Explicit = true for a detection load")
			}
			if res.BytesRead != int64(len(tt.data)) {
				t.Errorf("BytesRead = %d, want %d", res.BytesRead, len(tt.data))
			}

			wantAnchor, _ := filepath.EvalSymlinks(filepath.Join(dir, tt.file))
			if res.Tag.Anchor != wantAnchor {
				t.Errorf("Anchor = %q, want %q", res.Tag.Anchor, wantAnchor)
			}
			if res.Tag.Span != (Span{Start: 5, End: 5 + len(tt.file)}) {
				t.Errorf("Span = %+v", res.Tag.Span)
			}
		})
	}
}

func TestLoad_Explicit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "latin.csv", []byte("name\ncaf\xe9\n"))
	writeFile(t, dir, "wide.txt", []byte{0x48, 0x00, 0x69, 0x00})
	writeFile(t, dir, "utf8.txt", []byte("ok \xff done"))

	tests := []struct {
		name     string
		file     string
		encoding string
		want     string
		wantEnc  string
	}{
		{"iso-8859-1", "latin.csv", "iso-8859-1", "name\ncafé\n", "windows-1252"},
		{"label is case-insensitive", "latin.csv", "LATIN1", "name\ncafé\n", "windows-1252"},
		{"utf-16 without bom", "wide.txt", "utf-16", "Hi", "utf-16le"},
		{"explicit utf-8 replaces invalid bytes", "utf8.txt", "utf-8", "ok � done", "utf-8"},
	}

	loader := Loader{Transcoder: transcode.Transcoder{InputSize: 16, IntermediateSize: 16, OutputSize: 16}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: tt.file, Encoding: tt.encoding})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !res.Content.IsText() {
				t.Fatalf("Kind = %v, want text", res.Content.Kind())
			}
			if res.Content.Text() != tt.want {
				t.Errorf("Text = %q, want %q", res.Content.Text(), tt.want)
			}
			if res.Encoding != tt.wantEnc {
				t.Errorf("Encoding = %q, want %q", res.Encoding, tt.wantEnc)
			}
			if !res.Explicit || res.EncodingFallback {
				t.Errorf("Explicit = %v, EncodingFallback = %v", res.Explicit, res.EncodingFallback)
			}
			if len(res.Warnings) != 0 {
				t.Errorf("Warnings = %v, want none", res.Warnings)
			}
		})
	}
}

func TestLoad_ExplicitBypassesDetection(t *testing.T) {
	dir := t.TempDir()
	// Detection would call this binary.
	writeFile(t, dir, "blob.bin", []byte{0x00, 0xC3, 0x28, 0xFF})

	var loader Loader
	res, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: "blob.bin", Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !res.Content.IsText() {
		t.Fatalf("Kind = %v, want text", res.Content.Kind())
	}
	if want := "\x00Ã(ÿ"; res.Content.Text() != want {
		t.Errorf("Text = %q, want %q", res.Content.Text(), want)
	}
}

func TestLoad_ExplicitByteOrderMark(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		data     []byte
		encoding string
		want     string
	}{
		{"utf-16 label with big-endian bom", []byte{0xFE, 0xFF, 0x00, 0x48, 0x00, 0x69}, "utf-16", "Hi"},
		{"utf-16le with little-endian bom", []byte{0xFF, 0xFE, 0x48, 0x00, 0x69, 0x00}, "utf-16le", "Hi"},
		{"utf-8 with utf-8 bom", []byte("\xef\xbb\xbfHi"), "utf-8", "Hi"},
		{"windows-1252 with utf-8 bom", []byte("\xef\xbb\xbfHi"), "windows-1252", "Hi"},
	}

	loader := Loader{Transcoder: transcode.Transcoder{InputSize: 16, IntermediateSize: 16, OutputSize: 16}}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "bom" + strings.Repeat("x", i) + ".txt"
			writeFile(t, dir, name, tt.data)

			res, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: name, Encoding: tt.encoding})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if res.Content.Text() != tt.want {
				t.Errorf("Text = %q, want %q", res.Content.Text(), tt.want)
			}
		})
	}
}

func TestLoad_UnrecognizedEncoding(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("plain"))

	t.Run("lenient falls back with a warning", func(t *testing.T) {
		var loader Loader
		res, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: "a.txt", Encoding: "klingon"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if res.Content.Text() != "plain" {
			t.Errorf("Text = %q", res.Content.Text())
		}
		if !res.EncodingFallback || res.Encoding != "utf-8" {
			t.Errorf("EncodingFallback = %v, Encoding = %q", res.EncodingFallback, res.Encoding)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "klingon") {
			t.Errorf("Warnings = %v", res.Warnings)
		}
	})

	t.Run("strict fails", func(t *testing.T) {
		loader := Loader{Strict: true}
		_, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: "a.txt", Encoding: "klingon", Span: Span{1, 2}})

		var le *LoadError
		if !errors.As(err, &le) {
			t.Fatalf("error = %v, want *LoadError", err)
		}
		if le.Kind != KindUnrecognizedEncoding {
			t.Errorf("Kind = %v, want %v", le.Kind, KindUnrecognizedEncoding)
		}
		if errors.Is(err, ErrNotFound) {
			t.Error("unrecognized encoding must not match ErrNotFound")
		}
	})
}

func TestLoad_NotFound(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		encoding string
		wantKind ErrorKind
	}{
		{"missing file", "nope.txt", "", KindPathResolution},
		{"missing file with encoding", "nope.txt", "utf-8", KindPathResolution},
		{"directory", "sub", "", KindFileOpen},
		{"directory with encoding", "sub", "gbk", KindFileOpen},
	}

	var loader Loader
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := Span{Start: 5, End: 5 + len(tt.path)}
			_, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: tt.path, Span: span, Encoding: tt.encoding})
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}

			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("error = %T, want *LoadError", err)
			}
			if le.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", le.Kind, tt.wantKind)
			}
			if le.Span != span {
				t.Errorf("Span = %+v, want %+v", le.Span, span)
			}
			if le.Label() != "file not found" {
				t.Errorf("Label() = %q", le.Label())
			}
			if !strings.Contains(err.Error(), "file not found") {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestLoad_SymlinkKeepsArgumentExtension(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "data", []byte(`{"a":1}`))
	link := filepath.Join(dir, "data.json")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	var loader Loader
	res, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: "data.json"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantAnchor, _ := filepath.EvalSymlinks(target)
	if res.Tag.Anchor != wantAnchor {
		t.Errorf("Anchor = %q, want resolved target %q", res.Tag.Anchor, wantAnchor)
	}
	if res.Extension != "json" {
		t.Errorf("Extension = %q, want json", res.Extension)
	}
}

func TestLoad_RawSuppressesExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.csv", []byte("a,b\n1,2\n"))

	var loader Loader
	res, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: "users.csv", Raw: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Extension != "" || res.AutoConvert() {
		t.Errorf("Extension = %q, AutoConvert = %v; want none", res.Extension, res.AutoConvert())
	}
}

func TestLoad_AbsolutePathIgnoresBase(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "abs.md", []byte("# title"))

	var loader Loader
	res, err := loader.Load(context.Background(), Request{BaseDir: "/nonexistent-base", Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Content.Text() != "# title" || res.Extension != "md" {
		t.Errorf("got %q / %q", res.Content.Text(), res.Extension)
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", bytes.Repeat([]byte("x"), 100))
	writeFile(t, dir, "exact.txt", bytes.Repeat([]byte("y"), 64))

	loader := Loader{MaxFileSize: 64}

	for _, enc := range []string{"", "utf-8"} {
		_, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: "big.txt", Encoding: enc})
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("encoding %q: error = %v, want ErrFileTooLarge", enc, err)
		}

		res, err := loader.Load(context.Background(), Request{BaseDir: dir, Path: "exact.txt", Encoding: enc})
		if err != nil {
			t.Errorf("encoding %q: file at the limit failed: %v", enc, err)
		} else if res.Content.Len() != 64 {
			t.Errorf("encoding %q: Len = %d, want 64", enc, res.Content.Len())
		}
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var loader Loader
	if _, err := loader.Load(ctx, Request{Path: "whatever"}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestExtensionOf(t *testing.T) {
	tests := map[string]string{
		"users.csv":           "csv",
		"/a/b/archive.tar.gz": "gz",
		".bashrc":             "",
		"Makefile":            "",
		"dir.d/file":          "",
		"trailing.":           "",
		"/x/.hidden.yaml":     "yaml",
	}
	for in, want := range tests {
		if got := extensionOf(in); got != want {
			t.Errorf("extensionOf(%q) = %q, want %q", in, got, want)
		}
	}
}
