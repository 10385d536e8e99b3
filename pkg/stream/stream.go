// Package stream implements the chunked AEAD framing of spec.md §4.5: a
// sequence of independently authenticated frames, each bound to a
// deterministic nonce derived from the file id and chunk number, with an
// optional ChaCha20-Poly1305 cascade layer under stream_k2.
package stream

import (
	"encoding/binary"
	"io"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
	"github.com/quantum-shield/qsfs-go/pkg/crypto"
)

// Keys bundles the stream subkeys and per-file nonce prefix derived from
// the CEK (spec.md §4.2): stream_k1 keys the outer AEAD, stream_k2 keys the
// optional cascade inner layer, and FileID seeds every chunk's nonce.
type Keys struct {
	Stream1 []byte // outer AEAD key, constants.AESKeySize
	Stream2 []byte // cascade inner key, constants.ChaCha20KeySize
	FileID  []byte // constants.FileIDSize
}

// chunkNonce builds the deterministic 12-byte nonce file_id‖u32_be(chunkNo)
// (spec.md §4.5).
func chunkNonce(fileID []byte, chunkNo uint32) []byte {
	nonce := make([]byte, constants.AESNonceSize)
	copy(nonce, fileID)
	binary.BigEndian.PutUint32(nonce[constants.FileIDSize:], chunkNo)
	return nonce
}

// Writer seals plaintext chunks into the framed wire format of spec.md
// §4.5: Ready → WritingFrame(n) → Ready | Done. A Writer must not be reused
// across streams and is not safe for concurrent use.
type Writer struct {
	w         io.Writer
	outer     *crypto.AEAD
	inner     *crypto.AEAD // nil unless cascade is enabled
	aad       []byte       // PAE, fixed for the life of the stream
	fileID    []byte
	chunkNo   uint32
	chunkSize uint32
	done      bool
}

// NewWriter constructs a Writer over the given suite/keys, sealing each
// frame's AAD with aad (the PAE of spec.md §4.1). cascade, when true,
// additionally seals each chunk's plaintext with ChaCha20-Poly1305 under
// keys.Stream2 before the outer AEAD is applied.
func NewWriter(w io.Writer, suite constants.Suite, keys Keys, chunkSize uint32, aad []byte, cascade bool) (*Writer, error) {
	if chunkSize == 0 || chunkSize > constants.MaxChunkSize {
		return nil, qerrors.ErrChunkTooLarge
	}
	if len(keys.FileID) != constants.FileIDSize {
		return nil, qerrors.ErrKeyLengthMismatch
	}

	outer, err := crypto.NewAEAD(suite, keys.Stream1)
	if err != nil {
		return nil, err
	}

	var inner *crypto.AEAD
	if cascade {
		inner, err = crypto.NewChaCha20Poly1305AEAD(keys.Stream2)
		if err != nil {
			return nil, err
		}
	}

	return &Writer{
		w:         w,
		outer:     outer,
		inner:     inner,
		aad:       aad,
		fileID:    keys.FileID,
		chunkSize: chunkSize,
	}, nil
}

// WriteChunk seals one chunk of plaintext (at most chunkSize bytes) and
// writes its frame. plaintext is zeroized before WriteChunk returns.
func (sw *Writer) WriteChunk(plaintext []byte) error {
	if sw.done {
		return qerrors.NewUnsealError(io.ErrClosedPipe)
	}
	if uint32(len(plaintext)) > sw.chunkSize {
		return qerrors.ErrChunkTooLarge
	}
	if uint64(sw.chunkNo) >= constants.MaxChunks {
		return qerrors.ErrTooManyChunks
	}
	defer crypto.Zeroize(plaintext)

	nonce := chunkNonce(sw.fileID, sw.chunkNo)

	inner := plaintext
	if sw.inner != nil {
		sealed, err := sw.inner.Seal(nonce, plaintext, nil)
		if err != nil {
			return qerrors.NewChunkUnsealError(int64(sw.chunkNo), err)
		}
		defer crypto.Zeroize(sealed)
		inner = sealed
	}

	ciphertext, err := sw.outer.Seal(nonce, inner, sw.aad)
	if err != nil {
		return qerrors.NewChunkUnsealError(int64(sw.chunkNo), err)
	}

	var frameHeader [constants.FrameHeaderSize]byte
	binary.BigEndian.PutUint32(frameHeader[0:4], sw.chunkNo)
	binary.BigEndian.PutUint32(frameHeader[4:8], uint32(len(ciphertext)))

	if _, err := sw.w.Write(frameHeader[:]); err != nil {
		return qerrors.NewCryptoError("stream.Writer.WriteChunk", err)
	}
	if _, err := sw.w.Write(ciphertext); err != nil {
		return qerrors.NewCryptoError("stream.Writer.WriteChunk", err)
	}

	sw.chunkNo++
	return nil
}

// Close marks the writer Done. The underlying io.Writer is not closed.
func (sw *Writer) Close() error {
	sw.done = true
	return nil
}

// Reader unseals the framed wire format written by Writer: Ready →
// ExpectHeader(n) → ExpectBody(n,len) → Ready | Done. A Reader must not be
// reused across streams and is not safe for concurrent use.
type Reader struct {
	r         io.Reader
	outer     *crypto.AEAD
	inner     *crypto.AEAD // nil unless cascade is enabled
	aad       []byte
	fileID    []byte
	chunkNo   uint32
	chunkSize uint32
	done      bool
}

// NewReader mirrors NewWriter's configuration for the decrypt path.
func NewReader(r io.Reader, suite constants.Suite, keys Keys, chunkSize uint32, aad []byte, cascade bool) (*Reader, error) {
	if chunkSize == 0 || chunkSize > constants.MaxChunkSize {
		return nil, qerrors.ErrChunkTooLarge
	}
	if len(keys.FileID) != constants.FileIDSize {
		return nil, qerrors.ErrKeyLengthMismatch
	}

	outer, err := crypto.NewAEAD(suite, keys.Stream1)
	if err != nil {
		return nil, err
	}

	var inner *crypto.AEAD
	if cascade {
		inner, err = crypto.NewChaCha20Poly1305AEAD(keys.Stream2)
		if err != nil {
			return nil, err
		}
	}

	return &Reader{
		r:         r,
		outer:     outer,
		inner:     inner,
		aad:       aad,
		fileID:    keys.FileID,
		chunkSize: chunkSize,
	}, nil
}

// maxCiphertextLen bounds a single frame's ciphertext length against the
// configured chunk size plus the authentication overhead of every layer
// applied: the outer AEAD's Overhead() and, when the cascade is enabled,
// the inner ChaCha20-Poly1305 layer's Overhead() as well (spec.md §4.5's
// literal "chunk_size + 16" is the non-cascade case).
func (sr *Reader) maxCiphertextLen() int {
	n := int(sr.chunkSize) + sr.outer.Overhead()
	if sr.inner != nil {
		n += sr.inner.Overhead()
	}
	return n
}

// ReadChunk reads and unseals the next frame, or returns io.EOF if the
// stream ended cleanly between frames. An EOF mid-frame is reported as
// ErrShortFrame.
func (sr *Reader) ReadChunk() ([]byte, error) {
	if sr.done {
		return nil, io.EOF
	}
	if uint64(sr.chunkNo) >= constants.MaxChunks {
		return nil, qerrors.ErrTooManyChunks
	}

	var frameHeader [constants.FrameHeaderSize]byte
	n, err := io.ReadFull(sr.r, frameHeader[:])
	if err != nil {
		if n == 0 && err == io.EOF {
			sr.done = true
			return nil, io.EOF
		}
		return nil, qerrors.ErrShortFrame
	}

	chunkNo := binary.BigEndian.Uint32(frameHeader[0:4])
	ctLen := binary.BigEndian.Uint32(frameHeader[4:8])

	if chunkNo != sr.chunkNo {
		return nil, qerrors.ErrChunkOutOfOrder
	}
	if int(ctLen) > sr.maxCiphertextLen() {
		return nil, qerrors.ErrChunkTooLarge
	}

	ciphertext := make([]byte, ctLen)
	if _, err := io.ReadFull(sr.r, ciphertext); err != nil {
		return nil, qerrors.ErrShortFrame
	}
	defer crypto.Zeroize(ciphertext)

	nonce := chunkNonce(sr.fileID, chunkNo)

	inner, err := sr.outer.Open(nonce, ciphertext, sr.aad)
	if err != nil {
		return nil, qerrors.NewChunkUnsealError(int64(chunkNo), qerrors.ErrAeadTagFailure)
	}

	plaintext := inner
	if sr.inner != nil {
		defer crypto.Zeroize(inner)
		plaintext, err = sr.inner.Open(nonce, inner, nil)
		if err != nil {
			return nil, qerrors.NewChunkUnsealError(int64(chunkNo), qerrors.ErrAeadTagFailure)
		}
	}

	sr.chunkNo++
	return plaintext, nil
}
