// Package signer implements ML-DSA-87 signing and verification over a
// header's canonical text (spec.md §4.4).
package signer

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
	"github.com/quantum-shield/qsfs-go/pkg/crypto"
	"github.com/quantum-shield/qsfs-go/pkg/header"
	"github.com/quantum-shield/qsfs-go/pkg/trust"
)

// SignerID returns the lowercase-hex SHA-256 digest of an ML-DSA-87 public
// key's encoded bytes, used as the header's signer_id.
func SignerID(publicKeyBytes []byte) string {
	sum := sha256.Sum256(publicKeyBytes)
	return hex.EncodeToString(sum[:])
}

// Sign computes the canonical encoding of h, signs it with ML-DSA-87 using
// kp.PrivateKey, and attaches the signature and signature metadata to h
// (spec.md §4.4).
func Sign(h *header.Header, kp *crypto.MLDSAKeyPair) error {
	if kp == nil || kp.PrivateKey == nil || kp.PublicKey == nil {
		return qerrors.ErrInvalidKey
	}

	canonical := h.Canonical()

	sig, err := crypto.MLDSASign(kp.PrivateKey, canonical)
	if err != nil {
		return err
	}

	pubBytes := kp.PublicKey.Bytes()

	h.MLDSASignature = sig
	h.SignatureMetadata = &header.SignatureMetadata{
		SignerID:     SignerID(pubBytes),
		Algorithm:    constants.SignatureAlgorithmName,
		PublicKeyB64: base64.StdEncoding.EncodeToString(pubBytes),
	}

	return nil
}

// VerifyOptions controls the unsigned/trust-bypass escape hatches exposed
// by spec.md §6's unseal interface.
type VerifyOptions struct {
	// AllowUnsigned permits a header carrying no signature at all.
	AllowUnsigned bool

	// TrustAnySigner skips the trust-store membership check for a validly
	// signed header.
	TrustAnySigner bool
}

// Verify re-canonicalizes h and checks its signature, failing per the exact
// modes of spec.md §4.4:
//
//   - missing metadata with a present signature: ErrSignatureMetadataMissing
//   - signature tag invalid: ErrSignatureInvalid
//   - valid signature, unknown signer, trust-any disabled: ErrSignerUntrusted
//   - no signature, unsigned-allowed disabled: ErrUnsigned
//
// It additionally enforces the spec.md §9 open-question resolution:
// SHA-256(embedded_public_key) must equal the claimed signer_id, and, if
// store is a trust.KeyedStore with a pinned key for that id, the embedded
// key must match it exactly.
func Verify(h *header.Header, store trust.Store, opts VerifyOptions) error {
	if len(h.MLDSASignature) == 0 {
		if !opts.AllowUnsigned {
			return qerrors.ErrUnsigned
		}
		return nil
	}

	if h.SignatureMetadata == nil {
		return qerrors.ErrSignatureMetadataMissing
	}

	pubBytes, err := base64.StdEncoding.DecodeString(h.SignatureMetadata.PublicKeyB64)
	if err != nil {
		return qerrors.ErrSignatureInvalid
	}

	embeddedID := SignerID(pubBytes)
	if embeddedID != h.SignatureMetadata.SignerID {
		return qerrors.ErrSignerIDMismatch
	}

	if keyed, ok := store.(trust.KeyedStore); ok {
		if pinned, has := keyed.PublicKeyFor(embeddedID); has {
			if !crypto.ConstantTimeCompare(pinned, pubBytes) {
				return qerrors.ErrSignerIDMismatch
			}
		}
	}

	pk, err := crypto.ParseMLDSAPublicKey(pubBytes)
	if err != nil {
		return qerrors.ErrSignatureInvalid
	}

	canonical := h.Canonical()
	if !crypto.MLDSAVerify(pk, canonical, h.MLDSASignature) {
		return qerrors.ErrSignatureInvalid
	}

	if !opts.TrustAnySigner {
		if store == nil || !store.IsTrusted(embeddedID) {
			return qerrors.ErrSignerUntrusted
		}
	}

	return nil
}
