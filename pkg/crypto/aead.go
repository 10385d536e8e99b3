// aead.go implements Authenticated Encryption with Associated Data for the
// streaming chunk layer and the per-recipient DEK wrap step.
//
// Three AEADs are supported, selected by constants.Suite:
//   - AES-256-GCM: FIPS-approved, used for the wrap step unconditionally and
//     as a streaming suite.
//   - AES-256-GCM-SIV: nonce-misuse resistant, the streaming default.
//   - ChaCha20-Poly1305: cascade-only, layered under stream_k2.
//
// Unlike a session cipher with an internal sequence counter, QSFS derives
// every nonce deterministically from the file id and chunk number (spec.md
// §4.5), so this AEAD takes an explicit nonce on every call and keeps no
// internal counter state.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
)

// AEAD wraps a concrete cipher.AEAD bound to one suite and key.
type AEAD struct {
	cipher cipher.AEAD
	suite  constants.Suite
}

// NewAEAD constructs an AEAD for suite, keyed with key (32 bytes).
func NewAEAD(suite constants.Suite, key []byte) (*AEAD, error) {
	if len(key) != constants.AESKeySize {
		return nil, qerrors.ErrKeyLengthMismatch
	}

	aeadCipher, err := newCipher(suite, key)
	if err != nil {
		return nil, err
	}

	return &AEAD{cipher: aeadCipher, suite: suite}, nil
}

// NewChaCha20Poly1305AEAD constructs the cascade-only inner AEAD. This suite
// has no constants.Suite identifier of its own: it is never the file's outer
// suite, only an optional layer under stream_k2 (spec.md §4.5).
func NewChaCha20Poly1305AEAD(key []byte) (*AEAD, error) {
	if len(key) != constants.ChaCha20KeySize {
		return nil, qerrors.ErrKeyLengthMismatch
	}

	c, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, qerrors.NewCryptoError("NewChaCha20Poly1305AEAD", err)
	}
	return &AEAD{cipher: c, suite: 0}, nil
}

func newCipher(suite constants.Suite, key []byte) (cipher.AEAD, error) {
	switch suite {
	case constants.SuiteAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", err)
		}
		c, err := cipher.NewGCM(block)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", err)
		}
		return c, nil

	case constants.SuiteAES256GCMSIV:
		return newGCMSIV(key)

	default:
		return nil, qerrors.ErrUnsupportedSuite
	}
}

// Seal encrypts and authenticates plaintext under the given nonce and aad.
// The caller owns nonce uniqueness; this layer applies no counter of its own.
func (a *AEAD) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != a.cipher.NonceSize() {
		return nil, qerrors.ErrKeyLengthMismatch
	}
	return a.cipher.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts and verifies ciphertext under the given nonce and aad.
func (a *AEAD) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != a.cipher.NonceSize() {
		return nil, qerrors.ErrKeyLengthMismatch
	}
	plaintext, err := a.cipher.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, qerrors.ErrAeadTagFailure
	}
	return plaintext, nil
}

// Suite returns the cipher suite identifier (0 for the cascade-only ChaCha20-Poly1305 AEAD).
func (a *AEAD) Suite() constants.Suite {
	return a.suite
}

// Overhead returns the number of bytes of authentication-tag overhead added by Seal.
func (a *AEAD) Overhead() int {
	return a.cipher.Overhead()
}

// NonceSize returns the required nonce size in bytes.
func (a *AEAD) NonceSize() int {
	return a.cipher.NonceSize()
}
