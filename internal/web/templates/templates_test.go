package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorAlert("File <b>not</b> found", "Check the path", "FILE006").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "<b>") {
		t.Errorf("message not escaped: %s", out)
	}
	for _, want := range []string{"File &lt;b&gt;not&lt;/b&gt; found", "Check the path", "Code: FILE006", `role="alert"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		data    PreviewData
		want    []string
		notWant []string
	}{
		{
			name: "text",
			data: PreviewData{
				Path: "notes.md", Anchor: "/srv/notes.md", Encoding: "utf-8",
				Extension: "md", Kind: "text", Text: "<script>x</script>", Size: 18,
			},
			want:    []string{"<h1>notes.md</h1>", "/srv/notes.md", "&lt;script&gt;", "18 bytes"},
			notWant: []string{"<script>", "Preview truncated"},
		},
		{
			name:    "binary",
			data:    PreviewData{Path: "a.bin", Kind: "binary", Encoding: "binary", Size: 4},
			want:    []string{"Binary content, 4 bytes"},
			notWant: []string{"<pre"},
		},
		{
			name:    "truncated with warning",
			data:    PreviewData{Path: "big.txt", Kind: "text", Text: "abc", Truncated: true, Warnings: []string{"unrecognized encoding"}},
			want:    []string{"Preview truncated", "unrecognized encoding"},
			notWant: []string{"<dt>Extension</dt>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Preview(tt.data).Render(context.Background(), &buf); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q", w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("output should not contain %q", nw)
				}
			}
		})
	}
}

func TestPreviewData_Meta(t *testing.T) {
	rows := PreviewData{Encoding: "utf-16le", Kind: "text", Size: 6}.meta()

	var got []string
	for _, r := range rows {
		got = append(got, r.Label+"="+r.Value)
	}
	want := "Encoding=utf-16le Kind=text Size=6 bytes"
	if strings.Join(got, " ") != want {
		t.Errorf("meta() = %q, want %q", strings.Join(got, " "), want)
	}
}
