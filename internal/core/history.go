package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrHistoryDisabled is returned by history operations when no store is
// configured.
var ErrHistoryDisabled = errors.New("history is disabled")

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// HistoryEntry records one Open call.
type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	Path       string    `json:"path"`
	Anchor     string    `json:"anchor,omitempty"`
	Encoding   string    `json:"encoding,omitempty"`
	Kind       string    `json:"kind"` // text, binary or error
	Extension  string    `json:"extension,omitempty"`
	Bytes      int64     `json:"bytes"`
	DurationMS int64     `json:"duration_ms"`
	Warning    string    `json:"warning,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryStore persists history entries. internal/store implements it
// on PostgreSQL.
type HistoryStore interface {
	Insert(ctx context.Context, e HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// History returns the most recent entries, newest first. limit is clamped
// to [1, MaxHistoryLimit]; zero or less selects DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	entries, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

func newHistoryEntry(ctx context.Context, req OpenRequest, res *Result, err error, elapsed time.Duration) HistoryEntry {
	e := HistoryEntry{
		ID:         uuid.New(),
		Path:       req.Path,
		Encoding:   req.Encoding,
		Kind:       "error",
		DurationMS: elapsed.Milliseconds(),
		IPAddress:  GetIPAddressFromContext(ctx),
		UserAgent:  GetUserAgentFromContext(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		e.ErrorCode = MapError(err).Code
		return e
	}

	e.Anchor = res.Tag.Anchor
	e.Encoding = res.Encoding
	e.Kind = res.Content.Kind().String()
	e.Extension = res.Extension
	e.Bytes = res.BytesRead
	e.Warning = strings.Join(res.Warnings, "; ")
	return e
}

// record writes a history entry. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, req OpenRequest, res *Result, loadErr error, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	entry := newHistoryEntry(ctx, req, res, loadErr, elapsed)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), HistoryTimeout)
	defer cancel()

	if err := s.history.Insert(writeCtx, entry); err != nil {
		slog.Error("failed to record history",
			"id", entry.ID,
			"path", entry.Path,
			"error", err,
		)
	}
}
