package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/fileopen/internal/charset"
	"github.com/JonMunkholm/fileopen/internal/core"
	"github.com/JonMunkholm/fileopen/internal/logging"
	"github.com/JonMunkholm/fileopen/internal/web/templates"
)

// previewLimit caps the text shown on the preview page.
const previewLimit = 64 << 10

// OpenResponse is the JSON body of GET /api/open. Text content is in Text;
// binary content is base64 in Data.
type OpenResponse struct {
	Kind             string   `json:"kind"`
	Text             *string  `json:"text,omitempty"`
	Data             []byte   `json:"data,omitempty"`
	Size             int      `json:"size"`
	Extension        string   `json:"extension,omitempty"`
	AutoConvert      bool     `json:"autoConvert"`
	Encoding         string   `json:"encoding"`
	Explicit         bool     `json:"explicit"`
	EncodingFallback bool     `json:"encodingFallback,omitempty"`
	Tag              core.Tag `json:"tag"`
	Warnings         []string `json:"warnings,omitempty"`
}

func toOpenResponse(res *core.Result) OpenResponse {
	resp := OpenResponse{
		Kind:             res.Content.Kind().String(),
		Size:             res.Content.Len(),
		Extension:        res.Extension,
		AutoConvert:      res.AutoConvert(),
		Encoding:         res.Encoding,
		Explicit:         res.Explicit,
		EncodingFallback: res.EncodingFallback,
		Tag:              res.Tag,
		Warnings:         res.Warnings,
	}
	if res.Content.IsText() {
		text := res.Content.Text()
		resp.Text = &text
	} else {
		resp.Data = res.Content.Bytes()
	}
	return resp
}

// EncodingInfo describes one supported encoding.
type EncodingInfo struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// openRequest reads the path, encoding and raw query parameters.
func openRequest(r *http.Request) (core.OpenRequest, error) {
	q := r.URL.Query()
	req := core.OpenRequest{
		Path:     q.Get("path"),
		Encoding: q.Get("encoding"),
		Span:     querySpan(r.URL.RawQuery, "path"),
	}
	if raw := q.Get("raw"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return req, errors.New("raw must be true or false")
		}
		req.Raw = b
	}
	return req, nil
}

// querySpan returns the byte range of the first value of key within the
// raw query string, so errors can point at the argument.
func querySpan(rawQuery, key string) core.Span {
	offset := 0
	for _, part := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(part, "=")
		if uk, err := url.QueryUnescape(k); err == nil && uk == key {
			start := offset + len(k) + 1
			if !strings.Contains(part, "=") {
				start = offset + len(k)
			}
			return core.Span{Start: start, End: start + len(v)}
		}
		offset += len(part) + 1
	}
	return core.Span{}
}

// handleOpen loads one file and returns it as JSON.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	req, err := openRequest(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Open(ctx, req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.WithFields(ctx, "path", req.Path, "anchor", res.Tag.Anchor).
		Debug("file opened", "kind", res.Content.Kind().String(), "encoding", res.Encoding)
	writeJSON(w, toOpenResponse(res))
}

// handlePreview renders one file as HTML.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, err := openRequest(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := s.service.Open(WithRequestMetadata(r.Context(), r), req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	data := templates.PreviewData{
		Path:      req.Path,
		Anchor:    res.Tag.Anchor,
		Encoding:  res.Encoding,
		Extension: res.Extension,
		Kind:      res.Content.Kind().String(),
		Size:      res.Content.Len(),
		Warnings:  res.Warnings,
	}
	if res.Content.IsText() {
		data.Text, data.Truncated = truncateText(res.Content.Text(), previewLimit)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Preview(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render preview", "error", err)
	}
}

// truncateText cuts s to at most n bytes without splitting a rune.
func truncateText(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}

// handleEncodings lists the supported encodings.
func (s *Server) handleEncodings(w http.ResponseWriter, r *http.Request) {
	all := charset.All()
	infos := make([]EncodingInfo, len(all))
	for i, enc := range all {
		infos[i] = EncodingInfo{Name: enc.Name(), Aliases: enc.Aliases()}
	}
	writeJSON(w, infos)
}

// handleHistory returns recent loads.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context(), parseIntParam(r, "limit", core.DefaultHistoryLimit))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	writeJSON(w, entries)
}

// handleStatus reports the load limiter state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"loads":   s.service.LimiterStatus(),
		"history": s.service.HistoryEnabled(),
		"root":    s.service.RootDir(),
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
