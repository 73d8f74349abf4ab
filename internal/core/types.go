package core

import "fmt"

// ContentKind tells whether loaded content is text or opaque bytes.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentBinary
)

func (k ContentKind) String() string {
	switch k {
	case ContentText:
		return "text"
	case ContentBinary:
		return "binary"
	default:
		return fmt.Sprintf("ContentKind(%d)", int(k))
	}
}

// Content is either valid UTF-8 text or a binary payload. Use TextContent
// and BinaryContent to build one.
type Content struct {
	kind ContentKind
	text string
	data []byte
}

// TextContent wraps s, which must be valid UTF-8.
func TextContent(s string) Content { return Content{kind: ContentText, text: s} }

// BinaryContent wraps b without copying it.
func BinaryContent(b []byte) Content { return Content{kind: ContentBinary, data: b} }

// Kind returns the content kind.
func (c Content) Kind() ContentKind { return c.kind }

// IsText reports whether c holds text.
func (c Content) IsText() bool { return c.kind == ContentText }

// Text returns the text, or "" for binary content.
func (c Content) Text() string { return c.text }

// Bytes returns the binary payload, or the UTF-8 bytes of text content.
func (c Content) Bytes() []byte {
	if c.kind == ContentText {
		return []byte(c.text)
	}
	return c.data
}

// Len returns the size of the content in bytes.
func (c Content) Len() int {
	if c.kind == ContentText {
		return len(c.text)
	}
	return len(c.data)
}

// Span is a byte range in the command or request that named the file.
// It is carried through so errors can point back at the argument.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Tag records where a value came from.
type Tag struct {
	Span   Span   `json:"span"`
	Anchor string `json:"anchor,omitempty"` // resolved file path
}

// Request describes one file to load.
type Request struct {
	BaseDir  string // directory relative paths are resolved against
	Path     string // path as given by the caller
	Span     Span   // span of Path in the caller's input
	Encoding string // explicit encoding label; empty selects detection
	Raw      bool   // suppress the extension hint
}

// Result is a loaded file.
type Result struct {
	// Extension is the suffix of the file name without the dot, used to
	// pick a structured-format parser. Empty when there is none or when
	// the request was Raw.
	Extension string
	Content   Content
	Tag       Tag

	// Encoding is the encoding used to decode an explicit request, or the
	// interpretation the detector chose ("utf-8", "utf-16le", "utf-16be",
	// "binary").
	Encoding string

	// Explicit is true when the caller named an encoding.
	Explicit bool

	// EncodingFallback is set when the requested label was unknown and
	// UTF-8 was used instead.
	EncodingFallback bool

	BytesRead int64
	Warnings  []string
}

// AutoConvert reports whether the content should be handed to a
// structured-format parser selected by Extension.
func (r *Result) AutoConvert() bool { return r.Extension != "" }
