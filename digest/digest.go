// Package digest provides a streaming digest adapter. A Hasher wraps an
// inner cryptoflow.Source and forwards its chunks unchanged while feeding
// them into a running digest, which can be retrieved at any point. Split
// decouples consuming the data from receiving the final digest.
package digest

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	cryptoflow "github.com/cryptoflow/cryptoflow-go"
)

// Algorithm identifies a digest variant and knows how to construct its
// engine.
type Algorithm struct {
	name    string
	newHash func() (hash.Hash, error)
}

var (
	algorithmMap  map[string]*Algorithm = make(map[string]*Algorithm)
	algorithmList []*Algorithm
)

func newAlgorithm(name string, f func() (hash.Hash, error)) *Algorithm {
	algo := &Algorithm{name: name, newHash: f}
	algorithmMap[name] = algo
	algorithmList = append(algorithmList, algo)
	return algo
}

func plain(f func() hash.Hash) func() (hash.Hash, error) {
	return func() (hash.Hash, error) {
		return f(), nil
	}
}

// Registered digest algorithms.
var (
	MD5         = newAlgorithm("md5", plain(md5.New))
	SHA1        = newAlgorithm("sha1", plain(sha1.New))
	SHA224      = newAlgorithm("sha224", plain(sha256.New224))
	SHA256      = newAlgorithm("sha256", plain(sha256.New))
	SHA384      = newAlgorithm("sha384", plain(sha512.New384))
	SHA512      = newAlgorithm("sha512", plain(sha512.New))
	SHA3_256    = newAlgorithm("sha3-256", plain(sha3.New256))
	SHA3_512    = newAlgorithm("sha3-512", plain(sha3.New512))
	BLAKE2b_256 = newAlgorithm("blake2b-256", func() (hash.Hash, error) { return blake2b.New256(nil) })
	BLAKE2b_512 = newAlgorithm("blake2b-512", func() (hash.Hash, error) { return blake2b.New512(nil) })
)

// FromName returns the algorithm registered under the given name, or nil
// if there is none.
func FromName(name string) *Algorithm {
	return algorithmMap[name]
}

// Algorithms returns all registered algorithms in registration order.
func Algorithms() []*Algorithm {
	algos := make([]*Algorithm, len(algorithmList))
	copy(algos, algorithmList)
	return algos
}

// Name returns the registered name of the algorithm.
func (a *Algorithm) Name() string {
	return a.name
}

func (a *Algorithm) String() string {
	return a.name
}

// Digest is a finalized digest value tagged with the algorithm that
// produced it.
type Digest struct {
	algo *Algorithm
	sum  []byte
}

// Algorithm returns the algorithm that produced the digest.
func (d Digest) Algorithm() *Algorithm {
	return d.algo
}

// Bytes returns the raw digest bytes.
func (d Digest) Bytes() []byte {
	return d.sum
}

// String returns the hexadecimal rendering of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d.sum)
}

// Equal reports whether two digests carry the same bytes.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d.sum, other.sum)
}

// Hasher is a stream adapter that forwards the chunks of an inner source
// unchanged while accumulating their digest.
type Hasher struct {
	inner cryptoflow.Source
	algo  *Algorithm
	hash  hash.Hash
}

// New creates a Hasher over inner for the given algorithm.
func New(inner cryptoflow.Source, algo *Algorithm) (*Hasher, error) {
	if algo == nil {
		return nil, fmt.Errorf("The digest algorithm is nil.")
	}
	h, err := algo.newHash()
	if err != nil {
		return nil, fmt.Errorf("initializing %v: %w", algo.name, err)
	}
	return &Hasher{inner: inner, algo: algo, hash: h}, nil
}

// Next forwards the inner source's result unchanged, in content and in
// signaling. Any chunk yielded is first fed into the running digest.
func (f *Hasher) Next() ([]byte, error) {
	chunk, err := f.inner.Next()
	if err != nil {
		return nil, err
	}
	// hash.Hash writes never fail.
	f.hash.Write(chunk)
	return chunk, nil
}

// Digest finalizes the current accumulation and resets it, so the hasher
// can go on to digest a following segment of the same stream. It does not
// track end-of-stream; the caller decides when to retrieve.
func (f *Hasher) Digest() (Digest, error) {
	sum := f.hash.Sum(nil)
	f.hash.Reset()
	return Digest{algo: f.algo, sum: sum}, nil
}

// Inner returns the wrapped source.
func (f *Hasher) Inner() cryptoflow.Source {
	return f.inner
}
