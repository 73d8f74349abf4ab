package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches path resolution and open failures.
	ErrNotFound = errors.New("file not found")

	// ErrFileTooLarge is returned when a file exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrOutsideRoot is returned when a path resolves outside the
	// directory the service is confined to.
	ErrOutsideRoot = errors.New("path outside root")
)

// ErrorKind classifies load failures.
type ErrorKind int

const (
	KindPathResolution ErrorKind = iota + 1
	KindFileOpen
	KindUnrecognizedEncoding
	KindStreamIO
	KindFileTooLarge
	KindOutsideRoot
)

func (k ErrorKind) String() string {
	switch k {
	case KindPathResolution:
		return "path resolution failed"
	case KindFileOpen:
		return "file open failed"
	case KindUnrecognizedEncoding:
		return "unrecognized encoding label"
	case KindStreamIO:
		return "stream i/o error"
	case KindFileTooLarge:
		return "file too large"
	case KindOutsideRoot:
		return "path outside root"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// LoadError is returned by Loader.Load. Path resolution and open failures
// are kept apart in Kind but both read as "file not found" and match
// ErrNotFound.
type LoadError struct {
	Kind ErrorKind
	Path string // resolved path when known, otherwise the joined path
	Span Span   // span of the argument that named the file
	Err  error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case KindPathResolution, KindFileOpen:
		return fmt.Sprintf("cannot open %q for reading: file not found", e.Path)
	case KindUnrecognizedEncoding:
		return fmt.Sprintf("cannot open %q: %v", e.Path, e.Err)
	case KindFileTooLarge:
		return fmt.Sprintf("cannot open %q: file too large: %v", e.Path, e.Err)
	case KindOutsideRoot:
		return fmt.Sprintf("cannot open %q: path outside root", e.Path)
	default:
		return fmt.Sprintf("reading %q: %v", e.Path, e.Err)
	}
}

// Label is the short text shown under the offending argument.
func (e *LoadError) Label() string {
	switch e.Kind {
	case KindPathResolution, KindFileOpen:
		return "file not found"
	default:
		return e.Kind.String()
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindPathResolution || e.Kind == KindFileOpen
	case ErrFileTooLarge:
		return e.Kind == KindFileTooLarge
	case ErrOutsideRoot:
		return e.Kind == KindOutsideRoot
	}
	return false
}
