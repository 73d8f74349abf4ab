// Package templates renders the HTML served by the web package.
//
// Components are written in .templ files; the _templ.go files next to
// them are generated with `templ generate` and must not be edited.
package templates

import "strconv"

//go:generate templ generate

// PreviewData is what the preview page shows about one loaded file.
type PreviewData struct {
	Path      string
	Anchor    string
	Encoding  string
	Extension string
	Kind      string // text or binary
	Text      string // truncated text, empty for binary
	Size      int
	Truncated bool
	Warnings  []string
}

type metaRow struct {
	Label string
	Value string
}

// meta lists the non-empty fields shown above the content.
func (d PreviewData) meta() []metaRow {
	rows := []metaRow{
		{"Resolved", d.Anchor},
		{"Encoding", d.Encoding},
		{"Extension", d.Extension},
		{"Kind", d.Kind},
		{"Size", strconv.Itoa(d.Size) + " bytes"},
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Value != "" {
			out = append(out, r)
		}
	}
	return out
}
