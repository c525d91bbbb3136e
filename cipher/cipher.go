// Package cipher provides streaming symmetric encryption and decryption.
//
// A Builder holds an algorithm together with its key material. Its Encrypt
// and Decrypt methods wrap an inner cryptoflow.Source and yield a new
// source producing the transformed bytes, chunk by chunk, with the same
// readiness signaling as the inner stream.
package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	cryptoflow "github.com/cryptoflow/cryptoflow-go"
)

// Builder holds an algorithm, a key and an optional initialization vector,
// and builds stream adapters from them. Key and IV live in fixed storage
// sized to the registry-wide maximum lengths; the accessors expose exactly
// the slice the selected algorithm requires.
type Builder struct {
	algo *Algorithm
	key  [MaxKeyLen]byte
	iv   [MaxIVLen]byte
}

// NewBuilder creates a builder for the given algorithm. The key and IV are
// zero until set through Key/IV, SetKey/SetIV or the generate helpers.
func NewBuilder(algo *Algorithm) *Builder {
	return &Builder{algo: algo}
}

// Algorithm returns the algorithm this builder was created for.
func (b *Builder) Algorithm() *Algorithm {
	return b.algo
}

// Key returns a mutable slice over the builder's key storage, sized to the
// algorithm's key length.
func (b *Builder) Key() []byte {
	return b.key[:b.algo.keyLen]
}

// IV returns a mutable slice over the builder's IV storage, sized to the
// algorithm's IV length, or nil if the algorithm takes no IV.
func (b *Builder) IV() []byte {
	if b.algo.ivLen == 0 {
		return nil
	}
	return b.iv[:b.algo.ivLen]
}

// SetKey copies key into the builder. The length must match the
// algorithm's declared key length exactly.
func (b *Builder) SetKey(key []byte) error {
	if len(key) != b.algo.keyLen {
		return fmt.Errorf("The key for %v must be %v bytes, got %v.", b.algo.name, b.algo.keyLen, len(key))
	}
	copy(b.key[:], key)
	return nil
}

// SetIV copies iv into the builder. The length must match the algorithm's
// declared IV length exactly; algorithms without an IV accept only nil.
func (b *Builder) SetIV(iv []byte) error {
	if b.algo.ivLen == 0 {
		if len(iv) != 0 {
			return fmt.Errorf("The algorithm %v does not take an IV.", b.algo.name)
		}
		return nil
	}
	if len(iv) != b.algo.ivLen {
		return fmt.Errorf("The IV for %v must be %v bytes, got %v.", b.algo.name, b.algo.ivLen, len(iv))
	}
	copy(b.iv[:], iv)
	return nil
}

// GenerateKey fills the key with cryptographically strong random bytes.
func (b *Builder) GenerateKey() error {
	_, err := rand.Read(b.Key())
	return err
}

// GenerateIV fills the IV with cryptographically strong random bytes. It
// is a no-op for algorithms without an IV.
func (b *Builder) GenerateIV() error {
	iv := b.IV()
	if iv == nil {
		return nil
	}
	_, err := rand.Read(iv)
	return err
}

// Encrypt creates a stream adapter that encrypts the data pulled from
// inner. The caller keeps ownership of inner on failure.
func (b *Builder) Encrypt(inner cryptoflow.Source) (*Encrypt, error) {
	cs, err := b.stream(inner, true)
	if err != nil {
		return nil, err
	}
	return &Encrypt{cs}, nil
}

// Decrypt creates a stream adapter that decrypts the data pulled from
// inner. The caller keeps ownership of inner on failure.
func (b *Builder) Decrypt(inner cryptoflow.Source) (*Decrypt, error) {
	cs, err := b.stream(inner, false)
	if err != nil {
		return nil, err
	}
	return &Decrypt{cs}, nil
}

func (b *Builder) stream(inner cryptoflow.Source, encrypt bool) (*cipherStream, error) {
	var iv []byte
	if b.algo.ivLen > 0 {
		iv = b.iv[:b.algo.ivLen]
	}
	crypt, err := b.algo.crypter(b.key[:b.algo.keyLen], iv, encrypt)
	if err != nil {
		return nil, err
	}
	return &cipherStream{
		inner:     inner,
		crypt:     crypt,
		blockSize: b.algo.blockSize,
	}, nil
}

// Encrypt is a stream adapter that transparently encrypts the data pulled
// from the underlying source.
type Encrypt struct {
	*cipherStream
}

// Decrypt is a stream adapter that transparently decrypts the data pulled
// from the underlying source.
type Decrypt struct {
	*cipherStream
}

// streamState is the pull state machine of a cipher stream. Once
// finalized, every pull signals io.EOF; once faulted, every pull returns
// the recorded error.
type streamState int8

const (
	stateActive streamState = iota
	stateFinalized
	stateFaulted
)

type cipherStream struct {
	inner     cryptoflow.Source
	crypt     crypter
	blockSize int
	state     streamState
	err       error
}

// Next pulls the inner source and returns the corresponding transformed
// chunk. When the inner source is exhausted, the engine's trailing bytes
// are emitted as one final chunk (possibly empty) before io.EOF.
// ErrNotReady and inner source errors pass through untouched; an engine
// fault permanently fails the stream.
func (c *cipherStream) Next() ([]byte, error) {
	switch c.state {
	case stateFinalized:
		return nil, io.EOF
	case stateFaulted:
		return nil, c.err
	}

	chunk, err := c.inner.Next()
	switch {
	case errors.Is(err, cryptoflow.ErrNotReady):
		return nil, err
	case errors.Is(err, io.EOF):
		c.state = stateFinalized
		out := make([]byte, c.blockSize)
		n, ferr := c.crypt.finalize(out)
		if ferr != nil {
			return nil, c.fault(ferr)
		}
		return out[:n], nil
	case err != nil:
		return nil, err
	}

	out := make([]byte, len(chunk)+c.blockSize)
	n, uerr := c.crypt.update(out, chunk)
	if uerr != nil {
		return nil, c.fault(uerr)
	}
	return out[:n], nil
}

func (c *cipherStream) fault(err error) error {
	c.state = stateFaulted
	c.err = err
	return err
}
