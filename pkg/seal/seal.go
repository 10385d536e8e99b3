// Package seal implements the top-level Seal/Unseal orchestration of
// spec.md §4.6: CEK generation, per-recipient key wrap, header assembly
// and signing, and atomic, durable output.
package seal

import (
	"crypto/ecdh"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
	"github.com/quantum-shield/qsfs-go/pkg/crypto"
	"github.com/quantum-shield/qsfs-go/pkg/header"
	"github.com/quantum-shield/qsfs-go/pkg/kdf"
	"github.com/quantum-shield/qsfs-go/pkg/signer"
	"github.com/quantum-shield/qsfs-go/pkg/stream"
	"github.com/quantum-shield/qsfs-go/pkg/suite"
	"github.com/quantum-shield/qsfs-go/pkg/trust"
)

// Recipient is one intended reader of a sealed file: a label and the
// ML-KEM-1024 public key under which the CEK is wrapped, plus, in hybrid
// mode, the matching X25519 public key.
type Recipient struct {
	Label     string
	MLKEMKey  *crypto.MLKEMPublicKey
	X25519Key *ecdh.PublicKey // nil in non-hybrid mode
}

// Options configures a Seal call.
type Options struct {
	// Suite selects the outer streaming AEAD. Zero defaults to
	// constants.SuiteAES256GCMSIV per spec.md §4.5.
	Suite constants.Suite

	// ChunkSize is the streaming chunk size. Zero defaults to
	// constants.DefaultChunkSize.
	ChunkSize uint32

	// Hybrid enables X25519 key establishment alongside ML-KEM.
	Hybrid bool

	// Cascade enables the ChaCha20-Poly1305 inner layer under stream_k2.
	Cascade bool

	// Signer, if non-nil, signs the header with ML-DSA-87.
	Signer *crypto.MLDSAKeyPair
}

func (o Options) suite() constants.Suite {
	if o.Suite == 0 {
		return constants.SuiteAES256GCMSIV
	}
	return o.Suite
}

func (o Options) chunkSize() uint32 {
	if o.ChunkSize == 0 {
		return constants.DefaultChunkSize
	}
	return o.ChunkSize
}

// Seal encrypts the contents of input for each of recipients and writes
// the resulting container to outputPath, following spec.md §4.6's Seal
// procedure. The output is written to a temporary file in the same
// directory, synced, and atomically renamed into place: a crash or
// cancellation never publishes a partial file.
func Seal(input io.Reader, recipients []Recipient, outputPath string, opts Options) error {
	if len(recipients) == 0 {
		return qerrors.NewSealError(qerrors.ErrInvalidRecipient)
	}

	cek, err := crypto.SecureRandomBytes(constants.CEKSize)
	if err != nil {
		return qerrors.NewSealError(err)
	}
	defer crypto.Zeroize(cek)

	kdfSalt, err := crypto.SecureRandomBytes(constants.KDFSaltSize)
	if err != nil {
		return qerrors.NewSealError(err)
	}

	var ephKeyPair *crypto.X25519KeyPair
	ephPub := make([]byte, constants.X25519PublicKeySize) // all-zero unless hybrid
	if opts.Hybrid {
		ephKeyPair, err = crypto.GenerateX25519KeyPair()
		if err != nil {
			return qerrors.NewSealError(err)
		}
		ephPub = ephKeyPair.PublicKeyBytes()
	}

	h := header.NewHeader()
	h.ChunkSize = opts.chunkSize()
	h.Suite = opts.suite()
	h.KDFSalt = kdfSalt
	h.EphX25519PublicKey = ephPub

	entries := make([]header.RecipientEntry, len(recipients))
	for i, rcpt := range recipients {
		entry, err := wrapForRecipient(rcpt, cek, kdfSalt, ephKeyPair, opts.Hybrid)
		if err != nil {
			return qerrors.NewRecipientSealError(i, err)
		}
		entries[i] = entry
	}
	h.Recipients = entries

	stream1, stream2, fileID, err := kdf.DeriveStreamKeys(cek)
	if err != nil {
		return qerrors.NewSealError(err)
	}
	defer crypto.ZeroizeMultiple(stream1, stream2)
	h.FileID = fileID

	if opts.Signer != nil {
		if err := signer.Sign(h, opts.Signer); err != nil {
			return qerrors.NewSealError(err)
		}
	}

	if err := h.Validate(); err != nil {
		return qerrors.NewSealError(err)
	}

	headerBytes, err := h.Encode()
	if err != nil {
		return qerrors.NewSealError(err)
	}
	if len(headerBytes) > constants.HeaderLengthMax {
		return qerrors.NewSealError(qerrors.ErrHeaderTooLarge)
	}

	aad, err := suite.PAE(h.Suite, h.ChunkSize, fileID, kdfSalt)
	if err != nil {
		return qerrors.NewSealError(err)
	}

	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".qsfs-seal-*.tmp")
	if err != nil {
		return qerrors.NewSealError(qerrors.NewCryptoError("seal.Seal", err))
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil && !os.IsPermission(err) {
		return qerrors.NewSealError(qerrors.NewCryptoError("seal.Seal", err))
	}

	if err := writeHeader(tmp, headerBytes); err != nil {
		return qerrors.NewSealError(err)
	}

	keys := stream.Keys{Stream1: stream1, Stream2: stream2, FileID: fileID}
	sw, err := stream.NewWriter(tmp, h.Suite, keys, h.ChunkSize, aad, opts.Cascade)
	if err != nil {
		return qerrors.NewSealError(err)
	}

	if err := streamChunks(input, sw, h.ChunkSize); err != nil {
		return qerrors.NewSealError(err)
	}

	if err := tmp.Sync(); err != nil {
		return qerrors.NewSealError(qerrors.NewCryptoError("seal.Seal", err))
	}
	if err := tmp.Close(); err != nil {
		return qerrors.NewSealError(qerrors.NewCryptoError("seal.Seal", err))
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return qerrors.NewSealError(qerrors.NewCryptoError("seal.Seal", err))
	}
	succeeded = true
	return nil
}

func wrapForRecipient(rcpt Recipient, cek, kdfSalt []byte, eph *crypto.X25519KeyPair, hybrid bool) (header.RecipientEntry, error) {
	ct, mlkemSS, err := crypto.MLKEMEncapsulate(rcpt.MLKEMKey)
	if err != nil {
		return header.RecipientEntry{}, err
	}
	defer crypto.Zeroize(mlkemSS)

	var x25519SS []byte
	x25519PK := make([]byte, constants.X25519PublicKeySize)
	if hybrid && rcpt.X25519Key != nil {
		x25519SS, err = crypto.X25519(eph.PrivateKey, rcpt.X25519Key)
		if err != nil {
			return header.RecipientEntry{}, err
		}
		defer crypto.Zeroize(x25519SS)
		x25519PK = rcpt.X25519Key.Bytes()
	}

	kek, err := kdf.DeriveKEK(mlkemSS, x25519SS, kdfSalt)
	if err != nil {
		return header.RecipientEntry{}, err
	}
	defer crypto.Zeroize(kek)

	nonce, err := crypto.SecureRandomBytes(constants.AESNonceSize)
	if err != nil {
		return header.RecipientEntry{}, err
	}

	wrapped, err := kdf.WrapDEK(kek, nonce, cek)
	if err != nil {
		return header.RecipientEntry{}, err
	}

	fpr := kdf.Fingerprint(x25519PK)

	return header.RecipientEntry{
		Label:             rcpt.Label,
		MLKEMCiphertext:   ct,
		WrappedDEK:        wrapped,
		WrapLegacy:        wrapped,
		WrapNonce:         nonce,
		X25519PublicKey:   x25519PK,
		X25519Fingerprint: fpr,
	}, nil
}

func writeHeader(w io.Writer, headerBytes []byte) error {
	var lenPrefix [4]byte
	lenPrefix[0] = byte(len(headerBytes) >> 24)
	lenPrefix[1] = byte(len(headerBytes) >> 16)
	lenPrefix[2] = byte(len(headerBytes) >> 8)
	lenPrefix[3] = byte(len(headerBytes))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return qerrors.NewCryptoError("seal.writeHeader", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return qerrors.NewCryptoError("seal.writeHeader", err)
	}
	return nil
}

func streamChunks(input io.Reader, sw *stream.Writer, chunkSize uint32) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(input, buf)
		if n > 0 {
			if werr := sw.WriteChunk(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return qerrors.NewCryptoError("seal.streamChunks", err)
		}
	}
}

// UnsealOptions configures an Unseal call.
type UnsealOptions struct {
	// MLKEMKey is the caller's ML-KEM-1024 decapsulation key.
	MLKEMKey *crypto.MLKEMPrivateKey

	// X25519Key is the caller's X25519 private key, used only if the
	// header is hybrid.
	X25519Key *ecdh.PrivateKey

	// TrustStore answers signer-id membership queries.
	TrustStore trust.Store

	// AllowUnsigned permits an unsigned header.
	AllowUnsigned bool

	// TrustAnySigner skips trust-store membership for a validly signed header.
	TrustAnySigner bool

	// Cascade must match the Cascade setting the file was sealed with: the
	// header carries no cascade bit of its own (spec.md §6), so this is a
	// caller-side configuration carried out of band, the same way hybrid
	// vs. non-hybrid is a build/configure-time decision per spec.md §9.
	Cascade bool
}

// Unseal reads a container from input, verifies its signature per the
// configured policy, recovers the CEK via trial decapsulation/unwrap
// across the recipient list, and writes the decrypted contents to
// outputPath via the same temp-file-then-rename discipline as Seal
// (spec.md §4.6's Unseal procedure).
func Unseal(input io.Reader, outputPath string, opts UnsealOptions) error {
	h, err := readHeader(input)
	if err != nil {
		return qerrors.NewUnsealError(err)
	}

	if err := h.Validate(); err != nil {
		return qerrors.NewUnsealError(err)
	}

	if err := signer.Verify(h, opts.TrustStore, signer.VerifyOptions{
		AllowUnsigned:  opts.AllowUnsigned,
		TrustAnySigner: opts.TrustAnySigner,
	}); err != nil {
		return qerrors.NewUnsealError(err)
	}

	cek, err := recoverCEK(h, opts)
	if err != nil {
		return qerrors.NewUnsealError(err)
	}
	defer crypto.Zeroize(cek)

	stream1, stream2, fileID, err := kdf.DeriveStreamKeys(cek)
	if err != nil {
		return qerrors.NewUnsealError(err)
	}
	defer crypto.ZeroizeMultiple(stream1, stream2)

	aad, err := suite.PAE(h.Suite, h.ChunkSize, h.FileID, h.KDFSalt)
	if err != nil {
		return qerrors.NewUnsealError(err)
	}

	keys := stream.Keys{Stream1: stream1, Stream2: stream2, FileID: fileID}
	sr, err := stream.NewReader(input, h.Suite, keys, h.ChunkSize, aad, opts.Cascade)
	if err != nil {
		return qerrors.NewUnsealError(err)
	}

	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".qsfs-unseal-*.tmp")
	if err != nil {
		return qerrors.NewUnsealError(qerrors.NewCryptoError("seal.Unseal", err))
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil && !os.IsPermission(err) {
		return qerrors.NewUnsealError(qerrors.NewCryptoError("seal.Unseal", err))
	}

	for {
		plaintext, err := sr.ReadChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return qerrors.NewUnsealError(err)
		}
		if _, werr := tmp.Write(plaintext); werr != nil {
			crypto.Zeroize(plaintext)
			return qerrors.NewUnsealError(qerrors.NewCryptoError("seal.Unseal", werr))
		}
		crypto.Zeroize(plaintext)
	}

	if err := tmp.Sync(); err != nil {
		return qerrors.NewUnsealError(qerrors.NewCryptoError("seal.Unseal", err))
	}
	if err := tmp.Close(); err != nil {
		return qerrors.NewUnsealError(qerrors.NewCryptoError("seal.Unseal", err))
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return qerrors.NewUnsealError(qerrors.NewCryptoError("seal.Unseal", err))
	}
	succeeded = true
	return nil
}

// recoverCEK implements spec.md §4.6 step 3: trial decapsulation/unwrap
// across recipient entries in file order, stopping at the first entry
// whose wrapped DEK unwraps successfully.
func recoverCEK(h *header.Header, opts UnsealOptions) ([]byte, error) {
	if opts.MLKEMKey == nil {
		return nil, qerrors.ErrInvalidKey
	}

	for i := range h.Recipients {
		r := &h.Recipients[i]

		mlkemSS, err := crypto.MLKEMDecapsulate(opts.MLKEMKey, r.MLKEMCiphertext)
		if err != nil {
			continue
		}

		var x25519SS []byte
		if h.IsHybrid() && opts.X25519Key != nil {
			peerPub, perr := crypto.ParseX25519PublicKey(h.EphX25519PublicKey)
			if perr == nil {
				x25519SS, _ = crypto.X25519(opts.X25519Key, peerPub)
			}
		}

		kek, err := kdf.DeriveKEK(mlkemSS, x25519SS, h.KDFSalt)
		crypto.Zeroize(mlkemSS)
		if x25519SS != nil {
			crypto.Zeroize(x25519SS)
		}
		if err != nil {
			continue
		}

		wrapped := r.EffectiveWrappedDEK()
		if len(wrapped) != constants.WrappedDEKSize {
			crypto.Zeroize(kek)
			continue
		}

		cek, err := kdf.UnwrapDEK(kek, r.WrapNonce, wrapped)
		crypto.Zeroize(kek)
		if err != nil {
			continue
		}
		return cek, nil
	}

	return nil, qerrors.ErrNoMatchingRecipient
}

func readHeader(r io.Reader) (*header.Header, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, qerrors.NewCryptoError("seal.readHeader", err)
	}
	n := uint32(lenPrefix[0])<<24 | uint32(lenPrefix[1])<<16 | uint32(lenPrefix[2])<<8 | uint32(lenPrefix[3])
	if n > constants.HeaderLengthMax {
		return nil, qerrors.ErrHeaderTooLarge
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", qerrors.ErrHeaderDecode, err)
	}

	return header.Decode(buf)
}
