package transcode

import (
	"errors"

	"golang.org/x/text/transform"
)

// ErrNoProgress is returned when a transformer neither consumes input nor
// produces output, which would otherwise spin forever. It indicates a scratch
// buffer too small for a single unit of output.
var ErrNoProgress = errors.New("transcode: transformer made no progress")

// stage drives one transform.Transformer over a sequence of chunks.
//
// A chunk may end in the middle of a multi-byte sequence. The transformer
// reports that with transform.ErrShortSrc and leaves the bytes unconsumed;
// the stage keeps them in carry and prepends them to the next chunk.
type stage struct {
	t     transform.Transformer
	carry []byte
	out   []byte
}

func newStage(t transform.Transformer, size int) *stage {
	t.Reset()
	return &stage{t: t, out: make([]byte, size)}
}

// Pending returns the number of bytes held over from the previous chunk.
func (s *stage) Pending() int { return len(s.carry) }

// push transforms chunk and hands every produced segment to emit before
// returning. The segment passed to emit is only valid for the duration of
// the call. final marks the last chunk; the transformer is then asked to
// flush whatever it still holds.
func (s *stage) push(chunk []byte, final bool, emit func([]byte) error) error {
	src := chunk
	if len(s.carry) > 0 {
		src = append(s.carry, chunk...)
		s.carry = nil
	}

	for {
		nDst, nSrc, err := s.t.Transform(s.out, src, final)
		if nDst > 0 {
			if werr := emit(s.out[:nDst]); werr != nil {
				return werr
			}
		}
		src = src[nSrc:]

		switch {
		case err == nil:
			return nil

		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				return ErrNoProgress
			}

		case errors.Is(err, transform.ErrShortSrc) && !final:
			if len(src) > 0 {
				s.carry = append([]byte(nil), src...)
			}
			return nil

		default:
			return err
		}
	}
}
