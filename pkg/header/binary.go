// binary.go implements the deterministic storage encoding for Header.
//
// Wire Format:
//
//	magic            6B
//	chunk_size       4B  BE
//	file_id          8B
//	reserved_hash    32B (always written zero)
//	suite            1B
//	kdf_salt         1B present-flag || (32B if present)
//	recipient_count  4B  BE
//	recipients       recipient_count * recipient
//	eph_x25519_pk    32B
//	mldsa_sig        4B BE len || bytes
//	ed25519_sig      2B BE len || bytes (legacy, unused)
//	sig_metadata     1B present-flag || metadata
//	fin              1B
//
// recipient:
//
//	label            2B BE len || bytes
//	mlkem_ct         4B BE len || bytes
//	wrapped_dek      2B BE len || bytes
//	wrap_nonce       1B len || bytes
//	x25519_pk        32B
//	x25519_fpr       8B
//	wrap_legacy      2B BE len || bytes
//
// metadata:
//
//	signer_id        1B len || bytes
//	algorithm        1B len || bytes
//	public_key_b64   2B BE len || bytes
package header

import (
	"encoding/binary"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
)

func appendU32LP(buf []byte, data []byte) []byte {
	var lp [4]byte
	binary.BigEndian.PutUint32(lp[:], uint32(len(data)))
	buf = append(buf, lp[:]...)
	return append(buf, data...)
}

func appendU16LP(buf []byte, data []byte) []byte {
	var lp [2]byte
	binary.BigEndian.PutUint16(lp[:], uint16(len(data)))
	buf = append(buf, lp[:]...)
	return append(buf, data...)
}

func appendU8LP(buf []byte, data []byte) []byte {
	buf = append(buf, byte(len(data)))
	return append(buf, data...)
}

// Encode serializes h into its deterministic storage encoding.
func (h *Header) Encode() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 512)
	buf = append(buf, []byte(constants.Magic)...)

	var chunkSize [4]byte
	binary.BigEndian.PutUint32(chunkSize[:], h.ChunkSize)
	buf = append(buf, chunkSize[:]...)

	buf = append(buf, h.FileID...)
	buf = append(buf, make([]byte, 32)...) // reserved_hash, always zero

	buf = append(buf, byte(h.Suite))

	if len(h.KDFSalt) > 0 {
		buf = append(buf, 1)
		buf = append(buf, h.KDFSalt...)
	} else {
		buf = append(buf, 0)
	}

	var recipCount [4]byte
	binary.BigEndian.PutUint32(recipCount[:], uint32(len(h.Recipients)))
	buf = append(buf, recipCount[:]...)

	for i := range h.Recipients {
		r := &h.Recipients[i]
		buf = appendU16LP(buf, []byte(r.Label))
		buf = appendU32LP(buf, r.MLKEMCiphertext)
		buf = appendU16LP(buf, r.WrappedDEK)
		buf = appendU8LP(buf, r.WrapNonce)
		buf = append(buf, r.X25519PublicKey...)
		buf = append(buf, r.X25519Fingerprint...)
		buf = appendU16LP(buf, r.WrapLegacy)
	}

	buf = append(buf, h.EphX25519PublicKey...)
	buf = appendU32LP(buf, h.MLDSASignature)
	buf = appendU16LP(buf, h.Ed25519Signature)

	if h.SignatureMetadata != nil {
		buf = append(buf, 1)
		buf = appendU8LP(buf, []byte(h.SignatureMetadata.SignerID))
		buf = appendU8LP(buf, []byte(h.SignatureMetadata.Algorithm))
		buf = appendU16LP(buf, []byte(h.SignatureMetadata.PublicKeyB64))
	} else {
		buf = append(buf, 0)
	}

	buf = append(buf, h.Fin)

	return buf, nil
}

// cursor tracks a read offset into a decode buffer, returning
// ErrHeaderDecode on any out-of-bounds access instead of panicking.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) need(n int) error {
	if c.off+n > len(c.data) {
		return qerrors.ErrHeaderDecode
	}
	return nil
}

func (c *cursor) readFixed(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := c.data[c.off : c.off+n]
	c.off += n
	return out, nil
}

func (c *cursor) readByte() (byte, error) {
	b, err := c.readFixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readU32() (uint32, error) {
	b, err := c.readFixed(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) readU16() (uint16, error) {
	b, err := c.readFixed(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) readU32LP() ([]byte, error) {
	n, err := c.readU32()
	if err != nil {
		return nil, err
	}
	return c.readFixed(int(n))
}

func (c *cursor) readU16LP() ([]byte, error) {
	n, err := c.readU16()
	if err != nil {
		return nil, err
	}
	return c.readFixed(int(n))
}

func (c *cursor) readU8LP() ([]byte, error) {
	n, err := c.readByte()
	if err != nil {
		return nil, err
	}
	return c.readFixed(int(n))
}

// copyBytes returns a fresh copy so the decoded Header does not alias the
// input buffer.
func copyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Decode parses the deterministic storage encoding produced by Encode.
func Decode(data []byte) (*Header, error) {
	c := &cursor{data: data}

	magic, err := c.readFixed(len(constants.Magic))
	if err != nil {
		return nil, qerrors.ErrHeaderDecode
	}
	if string(magic) != constants.Magic {
		return nil, qerrors.ErrBadMagic
	}

	chunkSize, err := c.readU32()
	if err != nil {
		return nil, err
	}

	fileID, err := c.readFixed(constants.FileIDSize)
	if err != nil {
		return nil, err
	}

	if _, err := c.readFixed(32); err != nil { // reserved_hash, ignored
		return nil, err
	}

	suiteByte, err := c.readByte()
	if err != nil {
		return nil, err
	}

	kdfSaltPresent, err := c.readByte()
	if err != nil {
		return nil, err
	}
	var kdfSalt []byte
	if kdfSaltPresent != 0 {
		kdfSalt, err = c.readFixed(constants.KDFSaltSize)
		if err != nil {
			return nil, err
		}
	}

	recipCount, err := c.readU32()
	if err != nil {
		return nil, err
	}

	recipients := make([]RecipientEntry, 0, recipCount)
	for i := uint32(0); i < recipCount; i++ {
		label, err := c.readU16LP()
		if err != nil {
			return nil, err
		}
		mlkemCT, err := c.readU32LP()
		if err != nil {
			return nil, err
		}
		wrappedDEK, err := c.readU16LP()
		if err != nil {
			return nil, err
		}
		wrapNonce, err := c.readU8LP()
		if err != nil {
			return nil, err
		}
		x25519PK, err := c.readFixed(constants.X25519PublicKeySize)
		if err != nil {
			return nil, err
		}
		x25519Fpr, err := c.readFixed(constants.X25519FingerprintSize)
		if err != nil {
			return nil, err
		}
		wrapLegacy, err := c.readU16LP()
		if err != nil {
			return nil, err
		}

		recipients = append(recipients, RecipientEntry{
			Label:             string(label),
			MLKEMCiphertext:   copyBytes(mlkemCT),
			WrappedDEK:        copyBytes(wrappedDEK),
			WrapNonce:         copyBytes(wrapNonce),
			X25519PublicKey:   copyBytes(x25519PK),
			X25519Fingerprint: copyBytes(x25519Fpr),
			WrapLegacy:        copyBytes(wrapLegacy),
		})
	}

	ephX25519PK, err := c.readFixed(constants.X25519PublicKeySize)
	if err != nil {
		return nil, err
	}

	mldsaSig, err := c.readU32LP()
	if err != nil {
		return nil, err
	}

	ed25519Sig, err := c.readU16LP()
	if err != nil {
		return nil, err
	}

	metaPresent, err := c.readByte()
	if err != nil {
		return nil, err
	}

	var meta *SignatureMetadata
	if metaPresent != 0 {
		signerID, err := c.readU8LP()
		if err != nil {
			return nil, err
		}
		algorithm, err := c.readU8LP()
		if err != nil {
			return nil, err
		}
		pubKeyB64, err := c.readU16LP()
		if err != nil {
			return nil, err
		}
		meta = &SignatureMetadata{
			SignerID:     string(signerID),
			Algorithm:    string(algorithm),
			PublicKeyB64: string(pubKeyB64),
		}
	}

	fin, err := c.readByte()
	if err != nil {
		return nil, err
	}

	h := &Header{
		ChunkSize:          chunkSize,
		FileID:             copyBytes(fileID),
		Suite:              constants.Suite(suiteByte),
		KDFSalt:            copyBytes(kdfSalt),
		Recipients:         recipients,
		EphX25519PublicKey: copyBytes(ephX25519PK),
		MLDSASignature:     copyBytes(mldsaSig),
		Ed25519Signature:   copyBytes(ed25519Sig),
		SignatureMetadata:  meta,
		Fin:                fin,
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	return h, nil
}
