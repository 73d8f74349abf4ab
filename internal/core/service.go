package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// HistoryTimeout bounds the write of one history entry. It runs detached
// from the request context so a client hanging up does not lose the entry.
var HistoryTimeout = 5 * time.Second

// LoadRecorder receives load measurements. internal/metrics implements it.
type LoadRecorder interface {
	ObserveLoad(kind, path string, bytes int64, d time.Duration)
	UnrecognizedLabel()
}

type nopRecorder struct{}

func (nopRecorder) ObserveLoad(string, string, int64, time.Duration) {}
func (nopRecorder) UnrecognizedLabel()                               {}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// RootDir is the directory relative paths are resolved against.
	// Defaults to the working directory.
	RootDir string

	// ConfineToRoot rejects paths that resolve outside RootDir.
	ConfineToRoot bool

	// MaxConcurrent and MaxWait configure the load limiter.
	MaxConcurrent int
	MaxWait       time.Duration

	Loader Loader
}

// OpenRequest is one call to Service.Open.
type OpenRequest struct {
	Path     string
	Encoding string
	Raw      bool
	Span     Span
}

// Service loads files on behalf of long-running callers. It bounds
// concurrency, optionally confines paths to a root directory and records
// metrics and history.
type Service struct {
	root    string
	confine bool
	loader  Loader
	limiter *LoadLimiter
	history HistoryStore
	metrics LoadRecorder
}

// NewService creates a Service. history and metrics may be nil.
func NewService(cfg ServiceConfig, history HistoryStore, metrics LoadRecorder) (*Service, error) {
	root := cfg.RootDir
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root dir: %w", err)
	}
	// Compare against the real root so symlinked roots still confine.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	} else if cfg.ConfineToRoot {
		return nil, fmt.Errorf("resolve root dir: %w", err)
	}

	if metrics == nil {
		metrics = nopRecorder{}
	}

	return &Service{
		root:    abs,
		confine: cfg.ConfineToRoot,
		loader:  cfg.Loader,
		limiter: NewLoadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		history: history,
		metrics: metrics,
	}, nil
}

// RootDir returns the resolved root directory.
func (s *Service) RootDir() string { return s.root }

// HistoryEnabled reports whether a history store is configured.
func (s *Service) HistoryEnabled() bool { return s.history != nil }

// Open loads one file.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Result, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, errors.New("path is required")
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", req.Path, err)
	}
	defer s.limiter.Release()

	start := time.Now()
	res, err := s.open(ctx, req)
	elapsed := time.Since(start)

	s.observe(req, res, err, elapsed)
	s.record(ctx, req, res, err, elapsed)

	if err != nil {
		slog.Warn("open failed",
			"path", req.Path,
			"encoding", req.Encoding,
			"error", err,
			"code", MapError(err).Code,
		)
		return nil, err
	}
	return res, nil
}

func (s *Service) open(ctx context.Context, req OpenRequest) (*Result, error) {
	if s.confine {
		if err := s.checkConfined(req); err != nil {
			return nil, err
		}
	}
	return s.loader.Load(ctx, Request{
		BaseDir:  s.root,
		Path:     req.Path,
		Span:     req.Span,
		Encoding: req.Encoding,
		Raw:      req.Raw,
	})
}

// checkConfined rejects paths whose real location is outside the root.
// Paths that do not resolve are left to the loader to report.
func (s *Service) checkConfined(req OpenRequest) error {
	resolved, err := ResolvePath(s.root, req.Path)
	if err != nil {
		return nil
	}
	if !withinDir(s.root, resolved) {
		return &LoadError{Kind: KindOutsideRoot, Path: resolved, Span: req.Span, Err: ErrOutsideRoot}
	}
	return nil
}

func withinDir(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (s *Service) observe(req OpenRequest, res *Result, err error, elapsed time.Duration) {
	path := "heuristic"
	if req.Encoding != "" {
		path = "explicit"
	}

	kind := "error"
	var n int64
	if err == nil {
		kind = res.Content.Kind().String()
		n = res.BytesRead
	} else {
		// Lenient fallbacks are counted by the charset.OnFallback hook.
		var le *LoadError
		if errors.As(err, &le) && le.Kind == KindUnrecognizedEncoding {
			s.metrics.UnrecognizedLabel()
		}
	}
	s.metrics.ObserveLoad(kind, path, n, elapsed)
}

// LimiterStatus returns the load limiter state.
func (s *Service) LimiterStatus() LimiterStatus { return s.limiter.Status() }

// WaitForLoads blocks until in-flight loads finish or ctx is done.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
