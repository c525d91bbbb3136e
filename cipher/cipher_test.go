package cipher

import (
	"errors"
	"fmt"
	"io"
	random "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	cryptoflow "github.com/cryptoflow/cryptoflow-go"
)

const (
	testPlaintextLen = 1000
	testSubLen       = 20
)

// splitChunks cuts data into randomly sized chunks.
func splitChunks(data []byte) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		subLen := random.Intn(testSubLen) + 1
		if subLen > len(data) {
			subLen = len(data)
		}
		chunks = append(chunks, data[:subLen])
		data = data[subLen:]
	}
	return chunks
}

func newTestBuilder(t *testing.T, algo *Algorithm) *Builder {
	builder := NewBuilder(algo)
	assert.NoError(t, builder.GenerateKey(), algo.Name())
	assert.NoError(t, builder.GenerateIV(), algo.Name())
	return builder
}

func TestRoundTrip(t *testing.T) {
	for _, algo := range Algorithms() {
		builder := newTestBuilder(t, algo)

		plaintext := make([]byte, testPlaintextLen)
		random.Read(plaintext)

		inner := cryptoflow.NewSliceSource(splitChunks(plaintext)...)
		encrypt, err := builder.Encrypt(inner)
		assert.NoError(t, err, algo.Name())
		decrypt, err := builder.Decrypt(encrypt)
		assert.NoError(t, err, algo.Name())

		roundtrip, err := cryptoflow.Collect(decrypt)
		assert.NoError(t, err, algo.Name())
		assert.Equal(t, plaintext, roundtrip, algo.Name())
	}
}

func TestRoundTripEmptyStream(t *testing.T) {
	for _, algo := range Algorithms() {
		builder := newTestBuilder(t, algo)

		encrypt, err := builder.Encrypt(cryptoflow.NewSliceSource())
		assert.NoError(t, err, algo.Name())
		decrypt, err := builder.Decrypt(encrypt)
		assert.NoError(t, err, algo.Name())

		roundtrip, err := cryptoflow.Collect(decrypt)
		assert.NoError(t, err, algo.Name())
		assert.Len(t, roundtrip, 0, algo.Name())
	}
}

func TestRoundTripZeroLengthChunks(t *testing.T) {
	builder := newTestBuilder(t, AES256CBC)

	inner := cryptoflow.NewSliceSource([]byte{}, []byte("abc"), []byte{}, []byte("def"))
	encrypt, err := builder.Encrypt(inner)
	assert.NoError(t, err)
	decrypt, err := builder.Decrypt(encrypt)
	assert.NoError(t, err)

	roundtrip, err := cryptoflow.Collect(decrypt)
	assert.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), roundtrip)
}

func TestChunkingInvariance(t *testing.T) {
	for _, algo := range Algorithms() {
		builder := NewBuilder(algo)
		for i := range builder.Key() {
			builder.Key()[i] = byte(i + 1)
		}
		for i := range builder.IV() {
			builder.IV()[i] = byte(i + 7)
		}

		plaintext := make([]byte, testPlaintextLen)
		random.Read(plaintext)

		var outputs [][]byte
		for trial := 0; trial < 3; trial++ {
			encrypt, err := builder.Encrypt(cryptoflow.NewSliceSource(splitChunks(plaintext)...))
			assert.NoError(t, err, algo.Name())
			out, err := cryptoflow.Collect(encrypt)
			assert.NoError(t, err, algo.Name())
			outputs = append(outputs, out)
		}

		assert.Equal(t, outputs[0], outputs[1], algo.Name())
		assert.Equal(t, outputs[0], outputs[2], algo.Name())
	}
}

// notReadySource reports ErrNotReady before every chunk of the wrapped
// source.
type notReadySource struct {
	inner cryptoflow.Source
	ready bool
}

func (s *notReadySource) Next() ([]byte, error) {
	if !s.ready {
		s.ready = true
		return nil, cryptoflow.ErrNotReady
	}
	s.ready = false
	return s.inner.Next()
}

func TestTransparentBackpressure(t *testing.T) {
	builder := newTestBuilder(t, AES128CTR)

	plaintext := []byte("pull based streams never block")
	inner := &notReadySource{inner: cryptoflow.NewSliceSource(splitChunks(plaintext)...)}
	encrypt, err := builder.Encrypt(inner)
	assert.NoError(t, err)

	var ciphertext []byte
	notReady := 0
	for {
		chunk, err := encrypt.Next()
		if errors.Is(err, cryptoflow.ErrNotReady) {
			notReady++
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		assert.NoError(t, err)
		ciphertext = append(ciphertext, chunk...)
	}
	assert.Greater(t, notReady, 0)

	decrypt, err := builder.Decrypt(cryptoflow.NewSliceSource(ciphertext))
	assert.NoError(t, err)
	roundtrip, err := cryptoflow.Collect(decrypt)
	assert.NoError(t, err)
	assert.Equal(t, plaintext, roundtrip)
}

// countingSource counts how often it is pulled.
type countingSource struct {
	inner cryptoflow.Source
	pulls int
}

func (s *countingSource) Next() ([]byte, error) {
	s.pulls++
	return s.inner.Next()
}

func TestFinalizedStreamIsTerminal(t *testing.T) {
	builder := newTestBuilder(t, AES256CBC)

	inner := &countingSource{inner: cryptoflow.NewSliceSource([]byte("final"))}
	encrypt, err := builder.Encrypt(inner)
	assert.NoError(t, err)

	_, err = cryptoflow.Collect(encrypt)
	assert.NoError(t, err)

	pulls := inner.pulls
	for i := 0; i < 3; i++ {
		chunk, err := encrypt.Next()
		assert.Nil(t, chunk)
		assert.Equal(t, io.EOF, err)
	}
	// The inner source is not pulled again once the stream is finalized.
	assert.Equal(t, pulls, inner.pulls)
}

func TestDecryptIncompleteBlock(t *testing.T) {
	builder := newTestBuilder(t, AES128CBC)

	decrypt, err := builder.Decrypt(cryptoflow.NewSliceSource([]byte("too short")))
	assert.NoError(t, err)

	_, err = cryptoflow.Collect(decrypt)
	assert.ErrorIs(t, err, ErrIncompleteBlock)

	// A faulted stream stays faulted.
	for i := 0; i < 3; i++ {
		chunk, err := decrypt.Next()
		assert.Nil(t, chunk)
		assert.ErrorIs(t, err, ErrIncompleteBlock)
	}
}

func TestDecryptInvalidPadding(t *testing.T) {
	builder := newTestBuilder(t, AES128CBC)

	// One block of zeros encrypts to two blocks, data plus padding.
	// Dropping the padding block leaves a final block that decrypts to
	// zeros, which is never valid padding.
	plaintext := make([]byte, 16)
	encrypt, err := builder.Encrypt(cryptoflow.NewSliceSource(plaintext))
	assert.NoError(t, err)
	ciphertext, err := cryptoflow.Collect(encrypt)
	assert.NoError(t, err)
	assert.Len(t, ciphertext, 32)

	decrypt, err := builder.Decrypt(cryptoflow.NewSliceSource(ciphertext[:16]))
	assert.NoError(t, err)
	_, err = cryptoflow.Collect(decrypt)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

// faultySource fails once, then yields the wrapped source.
type faultySource struct {
	inner   cryptoflow.Source
	err     error
	faulted bool
}

func (s *faultySource) Next() ([]byte, error) {
	if !s.faulted {
		s.faulted = true
		return nil, s.err
	}
	return s.inner.Next()
}

func TestInnerErrorForwarded(t *testing.T) {
	builder := newTestBuilder(t, AES128CTR)

	innerErr := fmt.Errorf("The producer lost its data.")
	plaintext := []byte("recoverable upstream")
	inner := &faultySource{inner: cryptoflow.NewSliceSource(plaintext), err: innerErr}
	encrypt, err := builder.Encrypt(inner)
	assert.NoError(t, err)

	// The inner fault is forwarded unchanged and does not poison the
	// adapter itself.
	_, err = encrypt.Next()
	assert.Equal(t, innerErr, err)

	ciphertext, err := cryptoflow.Collect(encrypt)
	assert.NoError(t, err)

	decrypt, err := builder.Decrypt(cryptoflow.NewSliceSource(ciphertext))
	assert.NoError(t, err)
	roundtrip, err := cryptoflow.Collect(decrypt)
	assert.NoError(t, err)
	assert.Equal(t, plaintext, roundtrip)
}

func TestSetKeyLength(t *testing.T) {
	builder := NewBuilder(AES256CBC)
	assert.Error(t, builder.SetKey(make([]byte, 16)))
	assert.NoError(t, builder.SetKey(make([]byte, 32)))
}

func TestSetIVLength(t *testing.T) {
	builder := NewBuilder(AES128CBC)
	assert.Error(t, builder.SetIV(make([]byte, 12)))
	assert.NoError(t, builder.SetIV(make([]byte, 16)))
}

func TestSetIVWithoutIV(t *testing.T) {
	builder := NewBuilder(AES128ECB)
	assert.Nil(t, builder.IV())
	assert.NoError(t, builder.SetIV(nil))
	assert.Error(t, builder.SetIV(make([]byte, 16)))
}
