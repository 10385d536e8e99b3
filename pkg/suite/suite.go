// Package suite carries the AEAD suite identifier and builds the
// Pre-Authenticated Encoding (PAE) used as AAD for every chunk ciphertext
// and bound into the canonical signing text.
//
// Wire Format (PAE):
//
//	v2.0 (no kdf_salt): "QSFS-PAE\x01" || item(qsfs/v2) || item(suite_ascii) ||
//	                     item(u32_be(chunk_size)) || item(file_id)
//	v2.1 (kdf_salt set): "QSFS-PAE\x02" || item(qsfs/v2) || item(suite_ascii) ||
//	                     item(u32_be(chunk_size)) || item(file_id) || item(kdf_salt)
//
// Each item is encoded as u64_be(len) || bytes. The prefix byte discriminates
// the two layouts so a v2.0 AAD can never collide with a v2.1 one.
package suite

import (
	"encoding/binary"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
)

// Suite identifies the outer streaming AEAD.
type Suite = constants.Suite

// Re-exported suite identifiers, matching spec.md §3 exactly.
const (
	AES256GCM    = constants.SuiteAES256GCM
	AES256GCMSIV = constants.SuiteAES256GCMSIV
)

// appendItem appends a PAE item (u64_be(len) || bytes) to buf, growing it
// as needed, and returns the result.
func appendItem(buf []byte, item []byte) []byte {
	var lenPrefix [8]byte
	binary.BigEndian.PutUint64(lenPrefix[:], uint64(len(item)))
	buf = append(buf, lenPrefix[:]...)
	buf = append(buf, item...)
	return buf
}

// PAE builds the Additional Authenticated Data bound to every chunk and to
// the signature. kdfSalt may be nil or empty for the v2.0 layout; a non-empty
// kdfSalt selects v2.1. kdfSalt, when present, must be exactly
// constants.KDFSaltSize bytes, and fileID must be exactly constants.FileIDSize.
func PAE(s Suite, chunkSize uint32, fileID, kdfSalt []byte) ([]byte, error) {
	if len(fileID) != constants.FileIDSize {
		return nil, qerrors.ErrKeyLengthMismatch
	}
	if !s.IsSupported() {
		return nil, qerrors.ErrUnsupportedSuite
	}
	if len(kdfSalt) != 0 && len(kdfSalt) != constants.KDFSaltSize {
		return nil, qerrors.ErrKeyLengthMismatch
	}

	hybrid := len(kdfSalt) != 0

	var chunkSizeBytes [4]byte
	binary.BigEndian.PutUint32(chunkSizeBytes[:], chunkSize)

	out := make([]byte, 0, 128)
	if hybrid {
		out = append(out, constants.PAEPrefixV21...)
	} else {
		out = append(out, constants.PAEPrefixV20...)
	}

	out = appendItem(out, []byte(constants.PAEVersionItem))
	out = appendItem(out, []byte(s.String()))
	out = appendItem(out, chunkSizeBytes[:])
	out = appendItem(out, fileID)
	if hybrid {
		out = appendItem(out, kdfSalt)
	}

	return out, nil
}
