// Package transcode converts a byte stream from one character encoding to
// another through fixed-size buffers, so memory use does not depend on the
// size of the input.
//
// Conversion always goes through UTF-8: a decode stage turns input chunks
// into UTF-8 segments, and an encode stage (skipped when the target is UTF-8)
// turns those segments into the target encoding. Each stage carries any
// partial multi-byte sequence left at a chunk boundary into the next chunk,
// so splitting the input differently never changes the output.
package transcode

import (
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/fileopen/internal/charset"
)

// Default buffer sizes.
const (
	DefaultInputSize        = 2 << 10
	DefaultIntermediateSize = 4 << 10
	DefaultOutputSize       = 4 << 10

	// MinBufferSize is the smallest accepted buffer. Scratch buffers must
	// hold at least one unit of output, and an escaped unsupported rune
	// ("&#1114111;") is ten bytes long.
	MinBufferSize = 16
)

// StreamIOError reports a read or write failure while streaming. The
// operation is aborted; partial output may already have been written.
type StreamIOError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *StreamIOError) Error() string {
	return fmt.Sprintf("transcode: %s: %v", e.Op, e.Err)
}

func (e *StreamIOError) Unwrap() error { return e.Err }

// Stats describes a completed transcode.
type Stats struct {
	BytesRead    int64
	BytesWritten int64
}

// State is the decoder/encoder pair for a single transcode. It is created
// fresh for every operation and must not be reused.
type State struct {
	decode *stage
	encode *stage // nil when the target is UTF-8
}

// NewState prepares decode and encode stages for converting from one
// encoding to another with the given scratch buffer sizes.
func NewState(from, to *charset.Encoding, intermediateSize, outputSize int) *State {
	st := &State{decode: newStage(from.NewDecoder(), intermediateSize)}
	if !to.IsUTF8() {
		st.encode = newStage(to.NewEncoder(), outputSize)
	}
	return st
}

// Decode feeds one input chunk through the decoder and passes each UTF-8
// segment it produces to emit.
func (st *State) Decode(chunk []byte, final bool, emit func([]byte) error) error {
	return st.decode.push(chunk, final, emit)
}

// Encode feeds one UTF-8 segment through the encoder and passes each encoded
// chunk to emit. With a UTF-8 target the segment is passed through as is.
func (st *State) Encode(segment []byte, final bool, emit func([]byte) error) error {
	if st.encode == nil {
		if len(segment) == 0 {
			return nil
		}
		return emit(segment)
	}
	return st.encode.push(segment, final, emit)
}

// Pending reports how many bytes each stage holds over from the previous
// chunk. Both are zero once a transcode has finished.
func (st *State) Pending() (decode, encode int) {
	decode = st.decode.Pending()
	if st.encode != nil {
		encode = st.encode.Pending()
	}
	return decode, encode
}

// Transcoder streams bytes from one encoding to another.
// The zero value uses the default buffer sizes.
type Transcoder struct {
	InputSize        int
	IntermediateSize int
	OutputSize       int
}

func (t Transcoder) sizes() (in, mid, out int) {
	in, mid, out = t.InputSize, t.IntermediateSize, t.OutputSize
	if in <= 0 {
		in = DefaultInputSize
	}
	if mid <= 0 {
		mid = DefaultIntermediateSize
	}
	if out <= 0 {
		out = DefaultOutputSize
	}
	return max(in, MinBufferSize), max(mid, MinBufferSize), max(out, MinBufferSize)
}

// Transcode reads src to the end, converting from one encoding to the other,
// and writes the result to dst.
func (t Transcoder) Transcode(dst io.Writer, src io.Reader, from, to *charset.Encoding) (Stats, error) {
	inSize, midSize, outSize := t.sizes()

	var stats Stats
	st := NewState(from, to, midSize, outSize)
	input := make([]byte, inSize)

	write := func(p []byte) error {
		n, err := dst.Write(p)
		stats.BytesWritten += int64(n)
		if err != nil {
			return &StreamIOError{Op: "write", Err: err}
		}
		if n < len(p) {
			return &StreamIOError{Op: "write", Err: io.ErrShortWrite}
		}
		return nil
	}
	encode := func(segment []byte) error {
		return st.Encode(segment, false, write)
	}

	for {
		n, rerr := src.Read(input)
		stats.BytesRead += int64(n)

		final := errors.Is(rerr, io.EOF)
		if rerr != nil && !final {
			return stats, &StreamIOError{Op: "read", Err: rerr}
		}

		if n > 0 || final {
			if err := st.Decode(input[:n], final, encode); err != nil {
				return stats, err
			}
		}
		if final {
			break
		}
	}

	if err := st.Encode(nil, true, write); err != nil {
		return stats, err
	}
	return stats, nil
}

// Transcode converts src with default buffer sizes. See Transcoder.Transcode.
func Transcode(dst io.Writer, src io.Reader, from, to *charset.Encoding) (Stats, error) {
	return Transcoder{}.Transcode(dst, src, from, to)
}
