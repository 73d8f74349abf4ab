package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/fileopen/internal/charset"
	"github.com/JonMunkholm/fileopen/internal/classify"
	"github.com/JonMunkholm/fileopen/internal/transcode"
)

// Loader reads files from disk and turns them into text or binary content.
//
// With an explicit encoding the file is streamed through a transcoder into
// UTF-8. Without one it is read whole and classified: UTF-8, UTF-16 with a
// byte-order mark, or binary.
//
// A Loader holds no per-file state and may be shared between goroutines.
type Loader struct {
	// Transcoder sets the buffer sizes for explicit-encoding loads.
	Transcoder transcode.Transcoder

	// Strict makes an unrecognized encoding label an error instead of a
	// warning and a fallback to UTF-8.
	Strict bool

	// MaxFileSize caps the bytes read from one file. Zero means no limit.
	MaxFileSize int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Load resolves req.Path against req.BaseDir and loads the file.
func (l *Loader) Load(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled: %w", err)
	}

	start := time.Now()
	joined := joinPath(req.BaseDir, req.Path)

	resolved, err := ResolvePath(req.BaseDir, req.Path)
	if err != nil {
		return nil, &LoadError{Kind: KindPathResolution, Path: joined, Span: req.Span, Err: err}
	}

	var res *Result
	if req.Encoding != "" {
		res, err = l.loadExplicit(resolved, req)
	} else {
		res, err = l.loadDetect(resolved, req)
	}
	if err != nil {
		return nil, err
	}

	res.Tag = Tag{Span: req.Span, Anchor: resolved}
	if !req.Raw {
		res.Extension = extensionOf(resolved)
		if res.Extension == "" {
			// A symlink may point at a name without a suffix; the
			// name the caller used still says what the file is.
			res.Extension = extensionOf(req.Path)
		}
	}

	l.logger().Debug("file loaded",
		"path", resolved,
		"kind", res.Content.Kind().String(),
		"encoding", res.Encoding,
		"bytes", res.BytesRead,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// loadExplicit streams the file from the requested encoding into UTF-8.
func (l *Loader) loadExplicit(path string, req Request) (*Result, error) {
	res := &Result{Explicit: true}

	enc, err := charset.Lookup(req.Encoding)
	if err != nil {
		if l.Strict {
			return nil, &LoadError{Kind: KindUnrecognizedEncoding, Path: path, Span: req.Span, Err: err}
		}
		// Resolve logs the fallback and reports it to the charset hook.
		enc = charset.Resolve(req.Encoding)
		res.EncodingFallback = true
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("unrecognized encoding %q, using %s", req.Encoding, enc.Name()))
	}
	res.Encoding = enc.Name()

	f, err := openFile(path, req.Span)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src := NewCountingReader(f, l.MaxFileSize)
	var buf bytes.Buffer
	_, err = l.Transcoder.Transcode(&buf, src, enc, charset.Default())
	res.BytesRead = src.BytesRead
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, &LoadError{Kind: KindFileTooLarge, Path: path, Span: req.Span, Err: err}
		}
		return nil, &LoadError{Kind: KindStreamIO, Path: path, Span: req.Span, Err: err}
	}

	// Decoders replace malformed input with U+FFFD, so this only fires
	// if one of them emits bad UTF-8.
	out := buf.Bytes()
	if !utf8.Valid(out) {
		res.Warnings = append(res.Warnings, "decoded output contained invalid UTF-8; replaced with U+FFFD")
		l.logger().Warn("lossy reinterpretation of decoded output",
			"path", path,
			"encoding", enc.Name(),
		)
		res.Content = TextContent(strings.ToValidUTF8(string(out), string(utf8.RuneError)))
		return res, nil
	}

	res.Content = TextContent(string(out))
	return res, nil
}

// loadDetect reads the whole file and classifies it.
func (l *Loader) loadDetect(path string, req Request) (*Result, error) {
	f, err := openFile(path, req.Span)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src := NewCountingReader(f, l.MaxFileSize)
	data, err := io.ReadAll(src)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, &LoadError{Kind: KindFileTooLarge, Path: path, Span: req.Span, Err: err}
		}
		return nil, &LoadError{Kind: KindStreamIO, Path: path, Span: req.Span, Err: &transcode.StreamIOError{Op: "read", Err: err}}
	}

	c := classify.Classify(data)
	res := &Result{
		Encoding:  string(c.Detected),
		BytesRead: src.BytesRead,
	}
	if c.Kind == classify.Text {
		res.Content = TextContent(c.Text)
	} else {
		res.Content = BinaryContent(c.Raw)
	}
	return res, nil
}

// openFile opens path for reading. Directories count as open failures.
func openFile(path string, span Span) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Kind: KindFileOpen, Path: path, Span: span, Err: err}
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		f.Close()
		return nil, &LoadError{Kind: KindFileOpen, Path: path, Span: span, Err: err}
	}
	return f, nil
}

// ResolvePath joins p onto base (absolute paths are used as given), makes
// the result absolute and resolves symlinks. The file must exist.
func ResolvePath(base, p string) (string, error) {
	abs, err := filepath.Abs(joinPath(base, p))
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func joinPath(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// extensionOf returns the suffix after the last dot of the final path
// element. Names without a dot, or whose only dot is the leading one
// (".bashrc"), have no extension.
func extensionOf(p string) string {
	name := filepath.Base(p)
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}
