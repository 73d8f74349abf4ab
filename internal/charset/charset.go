// Package charset resolves character-encoding labels to concrete encodings.
//
// Labels follow the WHATWG Encoding Standard (the same label set browsers
// accept), so "latin1", "iso-8859-1", "cp1252" and "windows-1252" all name
// the same encoding. The catalog is built once on first use and never
// mutated afterwards; lookups are safe for concurrent use.
package charset

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnrecognizedLabel is returned by Lookup when a label names no known encoding.
var ErrUnrecognizedLabel = errors.New("unrecognized encoding label")

// Encoding is a named character encoding from the catalog.
// Values are shared; compare them by pointer or by Name.
type Encoding struct {
	name    string
	aliases []string
	enc     encoding.Encoding
}

// Name returns the canonical (WHATWG) name, e.g. "windows-1252".
func (e *Encoding) Name() string { return e.name }

// Aliases returns the extra labels accepted for this encoding beyond the
// WHATWG label table.
func (e *Encoding) Aliases() []string {
	out := make([]string, len(e.aliases))
	copy(out, e.aliases)
	return out
}

// IsUTF8 reports whether e is UTF-8.
func (e *Encoding) IsUTF8() bool { return e.name == utf8Name }

// NewDecoder returns a fresh decoder converting from e to UTF-8.
// Invalid input is replaced with U+FFFD rather than reported.
//
// A leading UTF-8, UTF-16LE or UTF-16BE byte-order mark is consumed and
// overrides e for the rest of the stream.
func (e *Encoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: unicode.BOMOverride(e.enc.NewDecoder())}
}

// NewEncoder returns a fresh encoder converting from UTF-8 to e.
// Runes e cannot represent are written as HTML numeric character references.
func (e *Encoding) NewEncoder() *encoding.Encoder {
	return encoding.HTMLEscapeUnsupported(e.enc.NewEncoder())
}

func (e *Encoding) String() string { return e.name }

const utf8Name = "utf-8"

// canonicalNames lists the encodings of the WHATWG Encoding Standard.
// Names htmlindex does not know are skipped when the catalog is built.
var canonicalNames = []string{
	"utf-8",
	"ibm866",
	"iso-8859-2", "iso-8859-3", "iso-8859-4", "iso-8859-5", "iso-8859-6",
	"iso-8859-7", "iso-8859-8", "iso-8859-8-i", "iso-8859-10", "iso-8859-13",
	"iso-8859-14", "iso-8859-15", "iso-8859-16",
	"koi8-r", "koi8-u",
	"macintosh",
	"windows-874",
	"windows-1250", "windows-1251", "windows-1252", "windows-1253",
	"windows-1254", "windows-1255", "windows-1256", "windows-1257",
	"windows-1258",
	"x-mac-cyrillic",
	"gbk", "gb18030",
	"big5",
	"euc-jp", "iso-2022-jp", "shift_jis",
	"euc-kr",
	"utf-16be", "utf-16le",
	"x-user-defined",
}

// extraAliases are labels people commonly type that the WHATWG table lacks.
var extraAliases = map[string]string{
	"utf16":     "utf-16le",
	"utf16le":   "utf-16le",
	"utf16be":   "utf-16be",
	"latin-1":   "windows-1252",
	"cp65001":   "utf-8",
	"shift-jis": "shift_jis",
	"sjis":      "shift_jis",
	"eucjp":     "euc-jp",
	"euckr":     "euc-kr",
}

type catalog struct {
	byName map[string]*Encoding
	sorted []*Encoding
}

var loadCatalog = sync.OnceValue(func() *catalog {
	c := &catalog{byName: make(map[string]*Encoding, len(canonicalNames))}

	for _, name := range canonicalNames {
		enc, err := htmlindex.Get(name)
		if err != nil {
			continue
		}
		canonical, err := htmlindex.Name(enc)
		if err != nil {
			canonical = name
		}
		if _, dup := c.byName[canonical]; dup {
			continue
		}
		e := &Encoding{name: canonical, enc: enc}
		c.byName[canonical] = e
		c.sorted = append(c.sorted, e)
	}

	// htmlindex may not hand back UTF-8 under its own name on every
	// version; the default must always exist.
	if _, ok := c.byName[utf8Name]; !ok {
		e := &Encoding{name: utf8Name, enc: unicode.UTF8}
		c.byName[utf8Name] = e
		c.sorted = append(c.sorted, e)
	}

	for alias, target := range extraAliases {
		if e, ok := c.byName[target]; ok {
			e.aliases = append(e.aliases, alias)
		}
	}
	for _, e := range c.sorted {
		sort.Strings(e.aliases)
	}

	sort.Slice(c.sorted, func(i, j int) bool {
		return c.sorted[i].name < c.sorted[j].name
	})
	return c
})

// Default returns UTF-8.
func Default() *Encoding {
	return loadCatalog().byName[utf8Name]
}

// Lookup finds the encoding named by label. Matching is case-insensitive and
// ignores surrounding whitespace. Unknown labels yield ErrUnrecognizedLabel.
func Lookup(label string) (*Encoding, error) {
	c := loadCatalog()

	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty label", ErrUnrecognizedLabel)
	}
	if target, ok := extraAliases[normalized]; ok {
		normalized = target
	}

	enc, err := htmlindex.Get(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedLabel, label)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedLabel, label)
	}
	e, ok := c.byName[name]
	if !ok {
		// Known to htmlindex but not an encoding we transcode with
		// (the "replacement" encoding, for instance).
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedLabel, label)
	}
	return e, nil
}

var fallbackHook atomic.Pointer[func(label string)]

// OnFallback installs f to be called each time Resolve falls back to UTF-8
// for an unrecognized label. A nil f removes the hook.
func OnFallback(f func(label string)) {
	if f == nil {
		fallbackHook.Store(nil)
		return
	}
	fallbackHook.Store(&f)
}

// Resolve is the total form of Lookup: an empty or unrecognized label
// resolves to UTF-8. An unrecognized label is logged and reported to the
// OnFallback hook. Callers that need to handle the fallback themselves use
// Lookup instead.
func Resolve(label string) *Encoding {
	if strings.TrimSpace(label) == "" {
		return Default()
	}
	e, err := Lookup(label)
	if err != nil {
		slog.Warn("unrecognized encoding label, using utf-8", "label", label)
		if f := fallbackHook.Load(); f != nil {
			(*f)(label)
		}
		return Default()
	}
	return e
}

// All returns every encoding in the catalog sorted by name.
func All() []*Encoding {
	c := loadCatalog()
	out := make([]*Encoding, len(c.sorted))
	copy(out, c.sorted)
	return out
}
