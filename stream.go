// Package cryptoflow provides pull-based streaming adapters for symmetric
// encryption, decryption and hashing, plus asynchronous random number
// generation backed by a worker pool.
//
// A stream is anything implementing Source. Pulling a Source either yields
// the next chunk of bytes, reports that no chunk is ready yet without
// blocking, or signals the end of the data. The cipher and digest
// subpackages wrap a Source and produce a new Source with the transformed
// or observed data, preserving the readiness signaling of the inner stream.
package cryptoflow

import (
	"fmt"
	"io"
)

// ErrNotReady is returned by Next when the source has no chunk available
// yet. It carries no data and consumes nothing; the caller may pull again
// once the underlying producer has more to give.
var ErrNotReady = fmt.Errorf("The stream is not ready.")

// Source is a pull-based sequence of byte chunks.
//
// Next returns the next chunk, which may be empty. It returns
// (nil, ErrNotReady) when no chunk is available yet, (nil, io.EOF) once the
// sequence is exhausted, and any other error as a fault of the producer.
type Source interface {
	Next() ([]byte, error)
}

// SliceSource is a Source backed by an in-memory list of chunks.
type SliceSource struct {
	chunks [][]byte
}

// NewSliceSource creates a Source yielding the given chunks in order,
// followed by io.EOF. The chunks are not copied.
func NewSliceSource(chunks ...[]byte) *SliceSource {
	return &SliceSource{chunks: chunks}
}

func (s *SliceSource) Next() ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

// ReaderSource adapts an io.Reader into a Source, yielding chunks of at
// most the configured size.
type ReaderSource struct {
	reader    io.Reader
	chunkSize int
}

const defaultChunkSize = 32 * 1024

// NewReaderSource creates a Source reading from r. If chunkSize is not
// positive, a 32KB default is used.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &ReaderSource{reader: r, chunkSize: chunkSize}
}

func (s *ReaderSource) Next() ([]byte, error) {
	buf := make([]byte, s.chunkSize)
	n, err := s.reader.Read(buf)
	if n > 0 {
		// A short read with an EOF still yields the data; the EOF is
		// reported on the next pull.
		return buf[:n], nil
	}
	if err == nil {
		return buf[:0], nil
	}
	return nil, err
}

// Collect drains a source and returns its chunks concatenated. The source
// must be always ready: ErrNotReady is returned to the caller as-is.
func Collect(src Source) ([]byte, error) {
	var out []byte
	for {
		chunk, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, chunk...)
	}
}
