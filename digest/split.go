package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrAbandoned is reported by a DigestFuture whose computing handle was
// closed before it reached the end of its stream. Abandonment is a
// deliberate cancellation, distinguishable from a digest fault.
var ErrAbandoned = fmt.Errorf("The computing handle was closed before the digest was delivered.")

type splitResult struct {
	digest Digest
	err    error
}

// Split decomposes the hasher into a computing handle and a receiving
// future. The computing handle consumes and forwards the stream exactly
// like the hasher would, and delivers the final digest into the future
// when the stream ends. The two halves can be owned and moved
// independently; typically the computing handle is handed to a consumer
// that never returns it, such as a transport sending a request body, while
// the caller keeps the future.
//
// The hasher must not be used directly after splitting.
func (f *Hasher) Split() (*SplitHasher, *DigestFuture) {
	slot := make(chan splitResult, 1)
	return &SplitHasher{hasher: f, slot: slot}, &DigestFuture{slot: slot}
}

// SplitHasher is the computing half of a split pair. It behaves like the
// Hasher it was split from for pass-through purposes.
type SplitHasher struct {
	hasher  *Hasher
	slot    chan splitResult
	resolve sync.Once
}

// Next forwards the inner source's result unchanged while digesting. When
// the inner source signals the end of its data, the final digest is
// retrieved and delivered to the receiving future before io.EOF is
// returned. A digest fault at that point is recorded in the future; the
// end-of-data signal to the consumer is unaffected.
func (s *SplitHasher) Next() ([]byte, error) {
	chunk, err := s.hasher.Next()
	if errors.Is(err, io.EOF) {
		s.resolve.Do(func() {
			d, derr := s.hasher.Digest()
			s.slot <- splitResult{digest: d, err: derr}
			close(s.slot)
		})
		return nil, io.EOF
	}
	return chunk, err
}

// Close abandons the pair. If the digest has not been delivered yet, the
// receiving future resolves to ErrAbandoned instead of hanging forever.
// Closing after delivery has no effect.
func (s *SplitHasher) Close() error {
	s.resolve.Do(func() {
		close(s.slot)
	})
	return nil
}

// DigestFuture is the receiving half of a split pair. It resolves exactly
// once: to the computed digest, to the fault recorded by the computing
// handle, or to ErrAbandoned.
type DigestFuture struct {
	slot <-chan splitResult

	mu       sync.Mutex
	resolved bool
	result   splitResult
}

// Wait blocks until the pair resolves or ctx is done. Once resolved, every
// subsequent call returns the same outcome immediately.
func (f *DigestFuture) Wait(ctx context.Context) (Digest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.resolved {
		select {
		case res, ok := <-f.slot:
			f.resolved = true
			if !ok {
				f.result = splitResult{err: ErrAbandoned}
			} else {
				f.result = res
			}
		case <-ctx.Done():
			return Digest{}, ctx.Err()
		}
	}
	return f.result.digest, f.result.err
}
