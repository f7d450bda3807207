package tpke

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherAlgorithm names a supported AEAD.
type CipherAlgorithm string

const (
	CipherChaCha20Poly1305 CipherAlgorithm = "chacha20-poly1305"
	CipherAES256GCM        CipherAlgorithm = "aes-256-gcm"
	DefaultCipher                          = CipherChaCha20Poly1305
)

// SymmetricCiphertext is the AEAD output for one payload.
type SymmetricCiphertext struct {
	Nonce      []byte
	Ciphertext []byte // sealed message including the tag
}

// SymmetricCipher is the authenticated encryption layer of the hybrid
// scheme. Encrypt always draws a fresh random nonce; Decrypt never returns
// partial output.
type SymmetricCipher interface {
	Algorithm() CipherAlgorithm
	KeySize() int
	NonceSize() int
	Encrypt(key *EphemeralKey, msg []byte) (*SymmetricCiphertext, error)
	Decrypt(key *EphemeralKey, ct *SymmetricCiphertext) ([]byte, error)
}

// SupportedCiphers lists every algorithm NewSymmetricCipher accepts.
func SupportedCiphers() []CipherAlgorithm {
	return []CipherAlgorithm{CipherChaCha20Poly1305, CipherAES256GCM}
}

// NewSymmetricCipher returns the cipher for alg. An empty name selects the
// default.
func NewSymmetricCipher(alg CipherAlgorithm) (SymmetricCipher, error) {
	switch alg {
	case CipherChaCha20Poly1305, "":
		return &aeadCipher{
			alg:       CipherChaCha20Poly1305,
			nonceSize: chacha20poly1305.NonceSize,
			newAEAD:   chacha20poly1305.New,
		}, nil
	case CipherAES256GCM:
		return &aeadCipher{
			alg:       CipherAES256GCM,
			nonceSize: 12,
			newAEAD:   newAESGCM,
		}, nil
	default:
		return nil, ErrInvalidParameters.Detailf("unsupported cipher: %s", alg)
	}
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

type aeadCipher struct {
	alg       CipherAlgorithm
	nonceSize int
	newAEAD   func(key []byte) (cipher.AEAD, error)
}

func (c *aeadCipher) Algorithm() CipherAlgorithm { return c.alg }
func (c *aeadCipher) KeySize() int               { return EphemeralKeySize }
func (c *aeadCipher) NonceSize() int             { return c.nonceSize }

func (c *aeadCipher) Encrypt(key *EphemeralKey, msg []byte) (*SymmetricCiphertext, error) {
	aead, err := c.newAEAD(key[:])
	if err != nil {
		return nil, WrapError(err, ErrorCategoryCryptographic, ErrorSeverityHigh,
			"CIPHER_INIT_FAILED", "failed to initialise AEAD")
	}
	nonce, err := SecureRandom(c.nonceSize)
	if err != nil {
		return nil, err
	}
	return &SymmetricCiphertext{
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, msg, nil),
	}, nil
}

func (c *aeadCipher) Decrypt(key *EphemeralKey, ct *SymmetricCiphertext) ([]byte, error) {
	if ct == nil || len(ct.Nonce) != c.nonceSize {
		return nil, ErrAuthenticationFailure.WithDetails("malformed nonce")
	}
	aead, err := c.newAEAD(key[:])
	if err != nil {
		return nil, ErrAuthenticationFailure.WithCause(err)
	}
	msg, err := aead.Open(nil, ct.Nonce, ct.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailure.WithCause(err)
	}
	return msg, nil
}
