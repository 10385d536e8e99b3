// Package header defines the QSFS container header: its in-memory
// representation, the deterministic storage encoding written to disk, and
// the canonical signing text consumed by pkg/signer (spec.md §4.3).
package header

import (
	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
)

// RecipientEntry is a single recipient's wrapped key material (spec.md §3).
type RecipientEntry struct {
	// Label is a human-readable recipient name.
	Label string

	// MLKEMCiphertext is the 1568-byte ML-KEM-1024 ciphertext.
	MLKEMCiphertext []byte

	// WrappedDEK is the 48-byte AES-256-GCM-wrapped CEK.
	WrappedDEK []byte

	// WrapNonce is the 12-byte nonce used to wrap the DEK.
	WrapNonce []byte

	// X25519PublicKey is the recipient's X25519 public key, 32 bytes
	// (all-zero in non-hybrid mode).
	X25519PublicKey []byte

	// X25519Fingerprint is the 8-byte BLAKE3 fingerprint of X25519PublicKey.
	X25519Fingerprint []byte

	// WrapLegacy mirrors WrappedDEK for older-reader compatibility
	// (spec.md §9 "legacy mirror field"). Writers must set this equal to
	// WrappedDEK; readers prefer WrappedDEK but accept either.
	WrapLegacy []byte
}

// Validate checks the field-length invariants of spec.md §3 for a single
// recipient entry, returning ErrInvalidRecipient on violation.
func (r *RecipientEntry) Validate() error {
	if len(r.MLKEMCiphertext) != constants.MLKEMCiphertextSize {
		return qerrors.ErrInvalidRecipient
	}
	if len(r.WrappedDEK) != constants.WrappedDEKSize {
		return qerrors.ErrInvalidRecipient
	}
	if len(r.WrapNonce) != constants.AESNonceSize {
		return qerrors.ErrInvalidRecipient
	}
	if len(r.X25519PublicKey) != constants.X25519PublicKeySize {
		return qerrors.ErrInvalidRecipient
	}
	if len(r.X25519Fingerprint) != constants.X25519FingerprintSize {
		return qerrors.ErrInvalidRecipient
	}
	return nil
}

// effectiveWrappedDEK returns WrappedDEK, falling back to WrapLegacy when
// WrappedDEK is absent (spec.md §9).
func (r *RecipientEntry) effectiveWrappedDEK() []byte {
	return r.EffectiveWrappedDEK()
}

// EffectiveWrappedDEK returns WrappedDEK, preferring it over WrapLegacy but
// falling back to WrapLegacy when WrappedDEK is absent, per the legacy
// mirror field design note of spec.md §9.
func (r *RecipientEntry) EffectiveWrappedDEK() []byte {
	if len(r.WrappedDEK) > 0 {
		return r.WrappedDEK
	}
	return r.WrapLegacy
}

// SignatureMetadata carries the signer identity attached alongside an
// ML-DSA-87 signature (spec.md §4.4).
type SignatureMetadata struct {
	// SignerID is SHA-256(PublicKey) in lowercase hex.
	SignerID string

	// Algorithm is the fixed algorithm name, "ml-dsa-87".
	Algorithm string

	// PublicKeyB64 is the base64-standard-encoded ML-DSA-87 public key.
	PublicKeyB64 string
}

// Header is the in-memory representation of a QSFS container header
// (spec.md §3/§6).
type Header struct {
	// ChunkSize is the streaming chunk size in bytes (≤ constants.MaxChunkSize).
	ChunkSize uint32

	// FileID is the 8-byte per-file nonce prefix, derived from the CEK.
	FileID []byte

	// Suite selects the outer streaming AEAD.
	Suite constants.Suite

	// KDFSalt is the optional per-file 32-byte salt (format v2.1). Nil or
	// empty selects format v2.0.
	KDFSalt []byte

	// Recipients is the ordered sequence of recipient entries, in the order
	// they were written. Canonical serialization re-sorts a copy by
	// ascending ML-KEM ciphertext; this field's order is not itself
	// significant.
	Recipients []RecipientEntry

	// EphX25519PublicKey is the per-file ephemeral X25519 public key
	// (all-zero if non-hybrid).
	EphX25519PublicKey []byte

	// MLDSASignature is the detached ML-DSA-87 signature over the
	// canonical encoding, or empty if unsigned.
	MLDSASignature []byte

	// Ed25519Signature is a legacy, unused field retained for wire
	// compatibility (spec.md §6); core never populates or checks it.
	Ed25519Signature []byte

	// SignatureMetadata is present iff MLDSASignature is present.
	SignatureMetadata *SignatureMetadata

	// Fin is the trailing format marker; must be 1.
	Fin uint8
}

// NewHeader returns a Header with its fixed-size zero fields populated
// (ReservedHash is implicit; Fin is set to 1).
func NewHeader() *Header {
	return &Header{
		Fin: 1,
	}
}

// Validate checks the header-level invariants of spec.md §3, excluding the
// signature (handled separately by pkg/signer) and the serialized-length
// ceiling (enforced by the caller at the point of reading the length prefix).
func (h *Header) Validate() error {
	if h.ChunkSize == 0 || h.ChunkSize > constants.MaxChunkSize {
		return qerrors.ErrChunkTooLarge
	}
	if len(h.FileID) != constants.FileIDSize {
		return qerrors.ErrHeaderDecode
	}
	if !h.Suite.IsSupported() {
		return qerrors.ErrUnsupportedSuite
	}
	if len(h.KDFSalt) != 0 && len(h.KDFSalt) != constants.KDFSaltSize {
		return qerrors.ErrHeaderDecode
	}
	if len(h.EphX25519PublicKey) != 0 && len(h.EphX25519PublicKey) != constants.X25519PublicKeySize {
		return qerrors.ErrHeaderDecode
	}
	for i := range h.Recipients {
		if err := h.Recipients[i].Validate(); err != nil {
			return err
		}
	}
	if len(h.MLDSASignature) > 0 && h.SignatureMetadata == nil {
		return qerrors.ErrSignatureMetadataMissing
	}
	if h.SignatureMetadata != nil {
		if len(h.MLDSASignature) == 0 {
			return qerrors.ErrSignatureMetadataMissing
		}
	}
	if h.Fin != 1 {
		return qerrors.ErrHeaderDecode
	}
	return nil
}

// IsHybrid reports whether this header carries a non-zero ephemeral X25519
// public key, i.e. whether hybrid key establishment was used.
func (h *Header) IsHybrid() bool {
	for _, b := range h.EphX25519PublicKey {
		if b != 0 {
			return true
		}
	}
	return false
}
