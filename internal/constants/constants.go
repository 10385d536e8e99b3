// Package constants defines the wire sizes, domain separators, and limits
// shared across the QSFS core.
//
// Security Level: NIST Category 5 (ML-KEM-1024 / ML-DSA-87).
package constants

// Container format identification.
const (
	// Magic is the 6-byte QSFS container magic.
	Magic = "QSFS2\x00"

	// HeaderLengthMax is the maximum accepted serialized header size, enforced on read.
	HeaderLengthMax = 1 << 20 // 1 MiB
)

// ML-KEM-1024 parameters (NIST FIPS 203).
const (
	MLKEMPublicKeySize    = 1568
	MLKEMPrivateKeySize   = 3168
	MLKEMCiphertextSize   = 1568
	MLKEMSharedSecretSize = 32
)

// ML-DSA-87 parameters (NIST FIPS 204).
const (
	MLDSAPublicKeySize  = 2592
	MLDSAPrivateKeySize = 4896
	MLDSASignatureSize  = 4627
)

// X25519 parameters (RFC 7748).
const (
	X25519PublicKeySize    = 32
	X25519PrivateKeySize   = 32
	X25519SharedSecretSize = 32
)

// AEAD and wrap sizes.
const (
	AESKeySize      = 32
	AESNonceSize    = 12
	AESTagSize      = 16
	ChaCha20KeySize = 32

	// WrappedDEKSize is the wrapped-DEK size: 32-byte key + 16-byte GCM tag.
	WrappedDEKSize = AESKeySize + AESTagSize

	// CEKSize is the Content Encryption Key size.
	CEKSize = 32

	// KDFSaltSize is the per-file kdf_salt size (format v2.1).
	KDFSaltSize = 32

	// FileIDSize is the per-file nonce prefix size.
	FileIDSize = 8

	// X25519FingerprintSize is the BLAKE3 fingerprint size of a recipient X25519 key.
	X25519FingerprintSize = 8
)

// HKDF-SHA3-384 domain separators (spec.md §4.2).
const (
	// HKDFExtractSalt is the fixed Extract-phase salt used by hkdf_sha384_expand.
	HKDFExtractSalt = "qsfs/hkdf/v2"

	// KDFSaltFallback is the derive_kek salt used when no per-file kdf_salt is present (format v2.0).
	KDFSaltFallback = "qsfs/kdf/v2"

	// KEKInfo is the derive_kek HKDF info string.
	KEKInfo = "qsfs/kek/v2"

	// StreamK1Info / StreamK2Info are the stream subkey info prefixes; the
	// confirm literal is appended before expansion.
	StreamK1Info = "qsfs/stream/k1"
	StreamK2Info = "qsfs/stream/k2"

	// ConfirmLiteral binds stream key derivation to the CEK generation event.
	ConfirmLiteral = "qsfs_confirm_v2"

	// NonceShellInfo derives the 8-byte file_id from the CEK.
	NonceShellInfo = "qsfs/nonce-prefix"
)

// Pre-Authenticated Encoding prefixes (spec.md §4.1).
const (
	PAEPrefixV20 = "QSFS-PAE\x01" // no kdf_salt
	PAEPrefixV21 = "QSFS-PAE\x02" // with kdf_salt

	// PAEVersionItem is the first PAE item on both layouts.
	PAEVersionItem = "qsfs/v2"
)

// Canonical signing text constants (spec.md §4.3).
const (
	CanonicalVersionLine = "qsfs/v2"
	CanonicalParamsLine  = "params: aesgcm256 mlkem1024"
	CanonicalAEADLine    = "aead: aes256gcm-v2"

	// SignatureAlgorithmName is the algorithm string carried in signature metadata.
	SignatureAlgorithmName = "ml-dsa-87"
)

// Streaming AEAD limits (spec.md §4.5).
const (
	// MaxChunkSize is the streaming chunk-size ceiling: 4 MiB.
	MaxChunkSize = 4 << 20

	// MaxChunks is the per-file chunk-count ceiling: 2^32.
	MaxChunks = 1 << 32

	// DefaultChunkSize is used when callers do not select one.
	DefaultChunkSize = 1 << 20 // 1 MiB

	// FrameHeaderSize is the on-wire frame header: u32 chunk_no || u32 ct_len.
	FrameHeaderSize = 8
)

// Suite identifiers (spec.md §3; matches the enum values exactly).
type Suite uint8

const (
	// SuiteAES256GCM is the alternative, configuration-selected suite.
	SuiteAES256GCM Suite = 1

	// SuiteAES256GCMSIV is the default streaming suite.
	SuiteAES256GCMSIV Suite = 2
)

// String returns the canonical ASCII identifier used in the PAE item stream.
func (s Suite) String() string {
	switch s {
	case SuiteAES256GCM:
		return "aes256-gcm"
	case SuiteAES256GCMSIV:
		return "aes256-gcm-siv"
	default:
		return "unknown"
	}
}

// IsSupported reports whether s is a known suite identifier.
func (s Suite) IsSupported() bool {
	return s == SuiteAES256GCM || s == SuiteAES256GCMSIV
}

// IsFIPSApproved reports whether s may be used in a `fips`-tagged build.
// AES-256-GCM-SIV is not yet FIPS-validated in any widely deployed module;
// only the plain GCM suite is permitted under the fips build tag.
func (s Suite) IsFIPSApproved() bool {
	return s == SuiteAES256GCM
}
