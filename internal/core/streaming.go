package core

// streaming.go provides the reader wrapper used on both load paths.
//
// Files are consumed through a CountingReader so the loader knows how many
// bytes it read and can stop once a file grows past the configured limit,
// without first stat'ing it (the file may be a pipe or still growing).

import (
	"fmt"
	"io"
)

// CountingReader wraps an io.Reader to track bytes read and, optionally,
// enforce a maximum size.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64 // 0 means unlimited
}

// NewCountingReader creates a counting reader. A positive limit makes Read
// fail with ErrFileTooLarge once more than limit bytes have been read.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Limit:  limit,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	if r.Limit > 0 {
		// Allow one byte past the limit so an exactly-sized file is
		// distinguishable from an oversized one.
		remaining := r.Limit + 1 - r.BytesRead
		if remaining <= 0 {
			return 0, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Limit)
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}

	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)

	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Limit)
	}
	return n, err
}
