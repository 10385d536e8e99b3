// Package errors defines the QSFS error kinds (spec.md §7) and the wrapper
// types that carry the failing chunk number or recipient index.
package errors

import (
	"errors"
	"fmt"
)

// Header and container errors.
var (
	// ErrBadMagic indicates the container's magic bytes do not match "QSFS2\x00".
	ErrBadMagic = errors.New("qsfs: bad magic")

	// ErrHeaderTooLarge indicates the declared header length exceeds the 1 MiB ceiling.
	ErrHeaderTooLarge = errors.New("qsfs: header too large")

	// ErrHeaderDecode indicates the header bytes could not be parsed.
	ErrHeaderDecode = errors.New("qsfs: header decode failed")

	// ErrInvalidRecipient indicates a recipient entry fails a field-length invariant.
	ErrInvalidRecipient = errors.New("qsfs: invalid recipient entry")
)

// Signature and trust errors.
var (
	// ErrUnsigned indicates a header carries no signature and unsigned input is not permitted.
	ErrUnsigned = errors.New("qsfs: unsigned header rejected")

	// ErrSignatureMetadataMissing indicates a signature is present but its metadata is absent.
	ErrSignatureMetadataMissing = errors.New("qsfs: signature present but metadata missing")

	// ErrSignatureInvalid indicates ML-DSA-87 verification failed.
	ErrSignatureInvalid = errors.New("qsfs: signature invalid")

	// ErrSignerUntrusted indicates a validly signed header whose signer id is not in the trust store.
	ErrSignerUntrusted = errors.New("qsfs: signer untrusted")

	// ErrSignerIDMismatch indicates SHA-256(embedded public key) != signer_id, or the
	// trust store's recorded key for that id does not match the embedded key.
	ErrSignerIDMismatch = errors.New("qsfs: signer id does not match embedded public key")
)

// Key establishment errors.
var (
	// ErrNoMatchingRecipient indicates every recipient entry failed to unwrap the DEK.
	ErrNoMatchingRecipient = errors.New("qsfs: no matching recipient")

	// ErrHybridSecretRequired indicates the header is hybrid but the caller supplied no X25519 secret.
	ErrHybridSecretRequired = errors.New("qsfs: x25519 secret required for hybrid unseal")
)

// Streaming AEAD errors.
var (
	// ErrChunkOutOfOrder indicates a frame's chunk_no did not match the expected monotonic counter.
	ErrChunkOutOfOrder = errors.New("qsfs: chunk out of order")

	// ErrChunkTooLarge indicates a frame's declared ciphertext length exceeds chunk_size+16.
	ErrChunkTooLarge = errors.New("qsfs: chunk too large")

	// ErrTooManyChunks indicates the stream exceeded 2^32 chunks.
	ErrTooManyChunks = errors.New("qsfs: too many chunks")

	// ErrAeadTagFailure indicates AEAD authentication failed for a chunk.
	ErrAeadTagFailure = errors.New("qsfs: aead tag verification failed")

	// ErrShortFrame indicates EOF occurred in the middle of a frame.
	ErrShortFrame = errors.New("qsfs: truncated frame")
)

// General errors.
var (
	// ErrIoFailure wraps an underlying I/O error encountered during seal/unseal.
	ErrIoFailure = errors.New("qsfs: io failure")

	// ErrRandomFailure indicates the system CSPRNG failed.
	ErrRandomFailure = errors.New("qsfs: random generation failed")

	// ErrKeyLengthMismatch indicates a key or secret had an unexpected length.
	ErrKeyLengthMismatch = errors.New("qsfs: key length mismatch")

	// ErrUnsupportedSuite indicates an unrecognized or disabled AEAD suite identifier.
	ErrUnsupportedSuite = errors.New("qsfs: unsupported suite")

	// ErrInvalidKey indicates a key or key pair is nil or otherwise unusable.
	ErrInvalidKey = errors.New("qsfs: invalid key")

	// ErrInvalidCiphertextLength indicates a KEM/AEAD ciphertext has the wrong length.
	ErrInvalidCiphertextLength = errors.New("qsfs: invalid ciphertext length")
)

// CryptoError wraps a cryptographic error with the operation that failed.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *CryptoError) Unwrap() error { return e.Err }

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// SealError wraps a failure during Seal, naming the recipient index if relevant.
type SealError struct {
	RecipientIndex int // -1 if not recipient-specific
	Err            error
}

func (e *SealError) Error() string {
	if e.RecipientIndex >= 0 {
		return fmt.Sprintf("seal: recipient %d: %v", e.RecipientIndex, e.Err)
	}
	return fmt.Sprintf("seal: %v", e.Err)
}
func (e *SealError) Unwrap() error { return e.Err }

// NewSealError wraps err as a SealError, not tied to any particular recipient.
func NewSealError(err error) *SealError { return &SealError{RecipientIndex: -1, Err: err} }

// NewRecipientSealError wraps err as a SealError for recipient index idx.
func NewRecipientSealError(idx int, err error) *SealError {
	return &SealError{RecipientIndex: idx, Err: err}
}

// UnsealError wraps a failure during Unseal, naming the failing chunk number if relevant.
type UnsealError struct {
	ChunkNo int64 // -1 if not chunk-specific
	Err     error
}

func (e *UnsealError) Error() string {
	if e.ChunkNo >= 0 {
		return fmt.Sprintf("unseal: chunk %d: %v", e.ChunkNo, e.Err)
	}
	return fmt.Sprintf("unseal: %v", e.Err)
}
func (e *UnsealError) Unwrap() error { return e.Err }

// NewUnsealError wraps err as an UnsealError, not tied to any particular chunk.
func NewUnsealError(err error) *UnsealError { return &UnsealError{ChunkNo: -1, Err: err} }

// NewChunkUnsealError wraps err as an UnsealError for chunk number n.
func NewChunkUnsealError(n int64, err error) *UnsealError {
	return &UnsealError{ChunkNo: n, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }
