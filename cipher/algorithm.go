package cipher

import (
	"crypto/aes"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

const (
	// MaxKeyLen is the largest key length of any registered algorithm.
	// It bounds the key storage of a Builder.
	MaxKeyLen = 32
	// MaxIVLen is the largest initialization vector length of any
	// registered algorithm. It bounds the IV storage of a Builder.
	MaxIVLen = 16
)

// crypterFunc builds the live transform engine for an algorithm. The key
// and iv slices carry exactly the lengths the algorithm declares; iv is
// nil for algorithms that take none.
type crypterFunc func(key, iv []byte, encrypt bool) (crypter, error)

// Algorithm identifies a symmetric cipher variant and its key, IV and
// block-size requirements.
type Algorithm struct {
	name       string
	keyLen     int
	ivLen      int // 0 means the algorithm takes no IV
	blockSize  int
	newCrypter crypterFunc
}

var (
	algorithmMap  map[string]*Algorithm = make(map[string]*Algorithm)
	algorithmList []*Algorithm
)

func newAlgorithm(name string, keyLen, ivLen, blockSize int, f crypterFunc) *Algorithm {
	algo := &Algorithm{
		name:       name,
		keyLen:     keyLen,
		ivLen:      ivLen,
		blockSize:  blockSize,
		newCrypter: f,
	}
	algorithmMap[name] = algo
	algorithmList = append(algorithmList, algo)
	return algo
}

// Registered cipher algorithms. Block modes carry a 16 byte block-size
// bound, stream modes a bound of 1.
var (
	AES128ECB = newAlgorithm("aes-128-ecb", 16, 0, aes.BlockSize, newAESECB)
	AES128CBC = newAlgorithm("aes-128-cbc", 16, aes.BlockSize, aes.BlockSize, newAESCBC)
	AES128CTR = newAlgorithm("aes-128-ctr", 16, aes.BlockSize, 1, newAESCTR)
	AES128CFB = newAlgorithm("aes-128-cfb", 16, aes.BlockSize, 1, newAESCFB)
	AES128OFB = newAlgorithm("aes-128-ofb", 16, aes.BlockSize, 1, newAESOFB)
	AES256ECB = newAlgorithm("aes-256-ecb", 32, 0, aes.BlockSize, newAESECB)
	AES256CBC = newAlgorithm("aes-256-cbc", 32, aes.BlockSize, aes.BlockSize, newAESCBC)
	AES256CTR = newAlgorithm("aes-256-ctr", 32, aes.BlockSize, 1, newAESCTR)
	AES256CFB = newAlgorithm("aes-256-cfb", 32, aes.BlockSize, 1, newAESCFB)
	AES256OFB = newAlgorithm("aes-256-ofb", 32, aes.BlockSize, 1, newAESOFB)
	ChaCha20  = newAlgorithm("chacha20", chacha20.KeySize, chacha20.NonceSize, 1, newChaCha20)
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

// KeyLen returns the key length the algorithm requires, in bytes.
func (a *Algorithm) KeyLen() int {
	return a.keyLen
}

// IVLen returns the initialization vector length the algorithm requires.
// The second return value is false if the algorithm takes no IV.
func (a *Algorithm) IVLen() (int, bool) {
	if a.ivLen == 0 {
		return 0, false
	}
	return a.ivLen, true
}

// BlockSize returns the block-size bound of the algorithm, used to size
// output buffers. Stream modes report 1.
func (a *Algorithm) BlockSize() int {
	return a.blockSize
}

func (a *Algorithm) crypter(key, iv []byte, encrypt bool) (crypter, error) {
	c, err := a.newCrypter(key, iv, encrypt)
	if err != nil {
		return nil, fmt.Errorf("initializing %v: %w", a.name, err)
	}
	return c, nil
}
