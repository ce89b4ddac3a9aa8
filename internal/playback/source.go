package playback

import (
	"errors"
	"io"
)

// Source hands the pacing loop bytes to consume.
//
// Next returns at most max bytes. A return of (0, io.EOF) is end of
// stream. A source that knows the bytes it returns are the last ones may
// return (n > 0, io.EOF). Any other error is fatal for the session.
type Source interface {
	Next(max int) (int, error)
}

// FileSource reads a file directly in bounded chunks
type FileSource struct {
	r         io.Reader
	buf       []byte
	remaining int64 // Bytes left when the size is known, -1 otherwise
}

// NewFileSource wraps r with a read buffer of chunk bytes. size is the
// number of readable bytes, or -1 when unknown.
func NewFileSource(r io.Reader, chunk int, size int64) *FileSource {
	if size < 0 {
		size = -1
	}
	return &FileSource{
		r:         r,
		buf:       make([]byte, chunk),
		remaining: size,
	}
}

// Next performs one read of at most min(max, chunk) bytes
func (s *FileSource) Next(max int) (int, error) {
	if s.remaining == 0 {
		return 0, io.EOF
	}
	if max > len(s.buf) {
		max = len(s.buf)
	}

	n, err := s.r.Read(s.buf[:max])
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}

	if s.remaining > 0 {
		s.remaining -= int64(n)
		if s.remaining <= 0 {
			s.remaining = 0
			return n, io.EOF
		}
	}
	return n, nil
}
