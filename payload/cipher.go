package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidKey is returned when the key is not exactly 32 bytes.
var ErrInvalidKey = errors.New("payload key must be exactly 32 bytes")

// ErrInvalidIV is returned when the IV is not one AES block long.
var ErrInvalidIV = errors.New("payload IV must be exactly one AES block")

// ErrDecrypt is returned for malformed or foreign ciphertext. Callers must
// map it to a verification failure; it never indicates a programming error.
var ErrDecrypt = errors.New("payload decryption failed")

const keySize = 32

// Cipher seals and opens claim objects under a single derived key.
//
// Every encryption reuses the same configured IV. With CBC this leaks
// equality of identical plaintexts under the same key; it does not expose
// key material. The reuse is a deliberate compatibility constraint of the
// token format (randomizing the IV would invalidate every token already in
// circulation) and is covered by a test rather than silently "fixed".
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// New creates a Cipher bound to key and iv. The key must be 32 bytes and
// the IV one AES block (16 bytes).
func New(key, iv []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKey
	}
	if len(iv) != aes.BlockSize {
		return nil, ErrInvalidIV
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("payload cipher init: %w", err)
	}

	return &Cipher{block: block, iv: iv}, nil
}

// Encrypt JSON-encodes v, pads it to the block size, and returns the hex
// encoding of the CBC ciphertext.
func (c *Cipher) Encrypt(v any) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("payload encode: %w", err)
	}

	padded := pad(plain)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)

	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt into out. Any malformed input (bad hex, a
// truncated block, bad padding, or JSON produced under a different key)
// yields an error wrapping [ErrDecrypt].
func (c *Cipher) Decrypt(ciphertext string, out any) error {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return fmt.Errorf("%w: not hex", ErrDecrypt)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return fmt.Errorf("%w: ciphertext not block aligned", ErrDecrypt)
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(plain, raw)

	unpadded, err := unpad(plain)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(unpadded, out); err != nil {
		return fmt.Errorf("%w: invalid claim encoding", ErrDecrypt)
	}

	return nil
}

// pad applies PKCS#7 padding up to the AES block size.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecrypt)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
		}
	}
	return b[:len(b)-n], nil
}
