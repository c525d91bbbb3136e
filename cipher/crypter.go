package cipher

import (
	"bytes"
	"crypto/aes"
	gocipher "crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

var (
	// ErrIncompleteBlock is returned when a decryption stream ends without
	// a whole final block to strip padding from.
	ErrIncompleteBlock = fmt.Errorf("The ciphertext does not end on a whole block.")
	// ErrInvalidPadding is returned when the final decrypted block does
	// not carry valid PKCS#7 padding.
	ErrInvalidPadding = fmt.Errorf("The ciphertext padding is invalid.")
)

// crypter is the incremental transform engine driven by a cipher stream.
// update transforms a chunk, writing at most len(src)+BlockSize bytes into
// dst. finalize flushes any buffered bytes, writing at most BlockSize
// bytes into dst. Both report the number of bytes written.
type crypter interface {
	update(dst, src []byte) (int, error)
	finalize(dst []byte) (int, error)
}

//
// Stream modes
//

// streamCrypter adapts a keystream cipher. Every input byte maps to one
// output byte, so updates never buffer and finalize flushes nothing.
type streamCrypter struct {
	stream gocipher.Stream
}

func (c *streamCrypter) update(dst, src []byte) (int, error) {
	c.stream.XORKeyStream(dst[:len(src)], src)
	return len(src), nil
}

func (c *streamCrypter) finalize(dst []byte) (int, error) {
	return 0, nil
}

//
// Block modes
//

// blockEncrypter buffers the trailing partial block between updates and
// emits PKCS#7 padding on finalize.
type blockEncrypter struct {
	mode gocipher.BlockMode
	buf  []byte
}

func (c *blockEncrypter) update(dst, src []byte) (int, error) {
	c.buf = append(c.buf, src...)
	bs := c.mode.BlockSize()
	n := len(c.buf) - len(c.buf)%bs
	if n == 0 {
		return 0, nil
	}
	c.mode.CryptBlocks(dst[:n], c.buf[:n])
	c.buf = append(c.buf[:0], c.buf[n:]...)
	return n, nil
}

func (c *blockEncrypter) finalize(dst []byte) (int, error) {
	block := pkcs7Pad(c.buf, c.mode.BlockSize())
	c.mode.CryptBlocks(dst[:len(block)], block)
	c.buf = nil
	return len(block), nil
}

// blockDecrypter buffers input and always holds back the last whole block,
// which may carry padding that only finalize is allowed to strip.
type blockDecrypter struct {
	mode gocipher.BlockMode
	buf  []byte
}

func (c *blockDecrypter) update(dst, src []byte) (int, error) {
	c.buf = append(c.buf, src...)
	bs := c.mode.BlockSize()
	held := len(c.buf) % bs
	if held == 0 {
		held = bs
	}
	n := len(c.buf) - held
	if n <= 0 {
		return 0, nil
	}
	c.mode.CryptBlocks(dst[:n], c.buf[:n])
	c.buf = append(c.buf[:0], c.buf[n:]...)
	return n, nil
}

func (c *blockDecrypter) finalize(dst []byte) (int, error) {
	bs := c.mode.BlockSize()
	if len(c.buf) != bs {
		return 0, ErrIncompleteBlock
	}
	block := make([]byte, bs)
	c.mode.CryptBlocks(block, c.buf)
	c.buf = nil
	plain, err := pkcs7Unpad(block, bs)
	if err != nil {
		return 0, err
	}
	copy(dst, plain)
	return len(plain), nil
}

// pkcs7Pad pads data up to a whole block. An empty input yields one full
// block of padding.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// pkcs7Unpad strips and verifies the padding of a single decrypted block.
func pkcs7Unpad(block []byte, blockSize int) ([]byte, error) {
	padding := int(block[len(block)-1])
	if padding == 0 || padding > blockSize {
		return nil, ErrInvalidPadding
	}
	for i := len(block) - padding; i < len(block); i++ {
		if block[i] != byte(padding) {
			return nil, ErrInvalidPadding
		}
	}
	return block[:len(block)-padding], nil
}

//
// ECB
//

// ecb implements crypto/cipher.BlockMode without chaining. The standard
// library leaves ECB out on purpose; it is carried here only because the
// algorithm registry exposes IV-less variants.
type ecb struct {
	block   gocipher.Block
	encrypt bool
}

func (e *ecb) BlockSize() int {
	return e.block.BlockSize()
}

func (e *ecb) CryptBlocks(dst, src []byte) {
	bs := e.block.BlockSize()
	for i := 0; i+bs <= len(src); i += bs {
		if e.encrypt {
			e.block.Encrypt(dst[i:i+bs], src[i:i+bs])
		} else {
			e.block.Decrypt(dst[i:i+bs], src[i:i+bs])
		}
	}
}

//
// Factories
//

func newAESECB(key, iv []byte, encrypt bool) (crypter, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	mode := &ecb{block: block, encrypt: encrypt}
	if encrypt {
		return &blockEncrypter{mode: mode}, nil
	}
	return &blockDecrypter{mode: mode}, nil
}

func newAESCBC(key, iv []byte, encrypt bool) (crypter, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if encrypt {
		return &blockEncrypter{mode: gocipher.NewCBCEncrypter(block, iv)}, nil
	}
	return &blockDecrypter{mode: gocipher.NewCBCDecrypter(block, iv)}, nil
}

func newAESCTR(key, iv []byte, encrypt bool) (crypter, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &streamCrypter{stream: gocipher.NewCTR(block, iv)}, nil
}

func newAESCFB(key, iv []byte, encrypt bool) (crypter, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if encrypt {
		return &streamCrypter{stream: gocipher.NewCFBEncrypter(block, iv)}, nil
	}
	return &streamCrypter{stream: gocipher.NewCFBDecrypter(block, iv)}, nil
}

func newAESOFB(key, iv []byte, encrypt bool) (crypter, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &streamCrypter{stream: gocipher.NewOFB(block, iv)}, nil
}

func newChaCha20(key, iv []byte, encrypt bool) (crypter, error) {
	stream, err := chacha20.NewUnauthenticatedCipher(key, iv)
	if err != nil {
		return nil, err
	}
	return &streamCrypter{stream: stream}, nil
}
