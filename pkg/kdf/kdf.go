// Package kdf implements the QSFS key schedule: HKDF-SHA3-384 expansion,
// per-recipient KEK derivation, CEK wrap/unwrap, and per-stream subkey
// derivation (spec.md §4.2).
//
// All HKDF operations use SHA3-384. A single Expand helper performs
// Extract-then-Expand with a fixed context salt, except DeriveKEK, which
// uses its own salt (the per-file kdf_salt when present, else a fixed
// fallback literal).
package kdf

import (
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
	"github.com/zeebo/blake3"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
	"github.com/quantum-shield/qsfs-go/pkg/crypto"
)

// Expand performs HKDF-SHA3-384 Extract (with the fixed context salt
// "qsfs/hkdf/v2") then Expand to n bytes. This is hkdf_sha384_expand.
func Expand(ikm, info []byte, n int) ([]byte, error) {
	return expandWithSalt(ikm, []byte(constants.HKDFExtractSalt), info, n)
}

func expandWithSalt(ikm, salt, info []byte, n int) ([]byte, error) {
	reader := hkdf.New(sha3.New384, ikm, salt, info)
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, qerrors.NewCryptoError("kdf.Expand", err)
	}
	return out, nil
}

// DeriveKEK derives a per-recipient Key Encapsulation Key from the ML-KEM
// and (optionally empty) X25519 shared secrets. salt is kdfSalt when
// non-empty (format v2.1); otherwise the fixed fallback literal
// "qsfs/kdf/v2" (format v2.0). Unlike Expand, DeriveKEK does not use the
// fixed HKDF extract salt — it uses its own, per spec.md §3.
func DeriveKEK(mlkemSS, x25519SS, kdfSalt []byte) ([]byte, error) {
	salt := []byte(constants.KDFSaltFallback)
	if len(kdfSalt) > 0 {
		if len(kdfSalt) != constants.KDFSaltSize {
			return nil, qerrors.ErrKeyLengthMismatch
		}
		salt = kdfSalt
	}

	ikm := make([]byte, 0, len(mlkemSS)+len(x25519SS))
	ikm = append(ikm, mlkemSS...)
	ikm = append(ikm, x25519SS...)

	return expandWithSalt(ikm, salt, []byte(constants.KEKInfo), constants.AESKeySize)
}

// DeriveStreamKeys expands the CEK into the two stream subkeys (k1 for the
// outer AEAD, k2 for the cascade layer) and the 8-byte file_id nonce
// prefix, per spec.md §4.2.
func DeriveStreamKeys(cek []byte) (k1, k2, fileID []byte, err error) {
	if len(cek) != constants.CEKSize {
		return nil, nil, nil, qerrors.ErrKeyLengthMismatch
	}

	k1Info := append([]byte(constants.StreamK1Info), []byte(constants.ConfirmLiteral)...)
	k2Info := append([]byte(constants.StreamK2Info), []byte(constants.ConfirmLiteral)...)

	k1, err = Expand(cek, k1Info, constants.AESKeySize)
	if err != nil {
		return nil, nil, nil, err
	}
	k2, err = Expand(cek, k2Info, constants.ChaCha20KeySize)
	if err != nil {
		crypto.Zeroize(k1)
		return nil, nil, nil, err
	}
	fileID, err = Expand(cek, []byte(constants.NonceShellInfo), constants.FileIDSize)
	if err != nil {
		crypto.ZeroizeMultiple(k1, k2)
		return nil, nil, nil, err
	}

	return k1, k2, fileID, nil
}

// WrapDEK wraps the CEK under the recipient KEK with AES-256-GCM, regardless
// of the file's outer streaming suite. The 12-byte nonce is caller-supplied
// (random per recipient); AAD is empty. Returns the 48-byte wrapped DEK
// (32-byte ciphertext || 16-byte tag).
func WrapDEK(kek, nonce, cek []byte) ([]byte, error) {
	if len(cek) != constants.CEKSize {
		return nil, qerrors.ErrKeyLengthMismatch
	}

	aead, err := crypto.NewAEAD(constants.SuiteAES256GCM, kek)
	if err != nil {
		return nil, err
	}

	return aead.Seal(nonce, cek, nil)
}

// UnwrapDEK reverses WrapDEK. It rejects any wrapped input whose length is
// not exactly constants.WrappedDEKSize before attempting the AEAD open,
// matching the InvalidRecipient failure mode of spec.md §7.
func UnwrapDEK(kek, nonce, wrapped []byte) ([]byte, error) {
	if len(wrapped) != constants.WrappedDEKSize {
		return nil, qerrors.ErrInvalidRecipient
	}

	aead, err := crypto.NewAEAD(constants.SuiteAES256GCM, kek)
	if err != nil {
		return nil, err
	}

	cek, err := aead.Open(nonce, wrapped, nil)
	if err != nil {
		return nil, qerrors.ErrAeadTagFailure
	}

	return cek, nil
}

// Fingerprint returns the 8-byte BLAKE3 fingerprint of a recipient X25519
// public key, used for the recipient entry's x25519_fpr field (spec.md §3).
func Fingerprint(x25519PK []byte) []byte {
	sum := blake3.Sum256(x25519PK)
	fpr := make([]byte, constants.X25519FingerprintSize)
	copy(fpr, sum[:constants.X25519FingerprintSize])
	return fpr
}
