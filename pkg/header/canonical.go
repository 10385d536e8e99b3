// canonical.go implements the canonical signing text form described in
// spec.md §4.3: a line-oriented ASCII encoding consumed by pkg/signer.
//
// Recipients are ordered by ascending lexicographic comparison of their
// ML-KEM ciphertext, making the canonical form independent of the in-memory
// recipient order (spec.md §8 property 3).
package header

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/quantum-shield/qsfs-go/internal/constants"
)

// sortedRecipients returns a copy of h.Recipients ordered by ascending
// lexicographic comparison of MLKEMCiphertext, leaving h.Recipients
// untouched.
func (h *Header) sortedRecipients() []RecipientEntry {
	sorted := make([]RecipientEntry, len(h.Recipients))
	copy(sorted, h.Recipients)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].MLKEMCiphertext, sorted[j].MLKEMCiphertext) < 0
	})
	return sorted
}

// Canonical produces the canonical signing text for h. It is byte-identical
// across calls for the same logical header (spec.md §8 property 2).
func (h *Header) Canonical() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", constants.CanonicalVersionLine)
	fmt.Fprintf(&buf, "%s\n", constants.CanonicalParamsLine)
	fmt.Fprintf(&buf, "chunk: %d\n", h.ChunkSize)
	fmt.Fprintf(&buf, "context: %s\n", base64.StdEncoding.EncodeToString(h.FileID))
	fmt.Fprintf(&buf, "%s\n", constants.CanonicalAEADLine)

	for _, r := range h.sortedRecipients() {
		fmt.Fprintf(&buf, "recip: label=%s ct=%s wrap_legacy=%s gcm_nonce=%s gcm_wrap=%s x25519_pk=%s x25519_fpr=%s\n",
			r.Label,
			base64.StdEncoding.EncodeToString(r.MLKEMCiphertext),
			base64.StdEncoding.EncodeToString(r.WrapLegacy),
			base64.StdEncoding.EncodeToString(r.WrapNonce),
			base64.StdEncoding.EncodeToString(r.effectiveWrappedDEK()),
			base64.StdEncoding.EncodeToString(r.X25519PublicKey),
			hex.EncodeToString(r.X25519Fingerprint),
		)
	}

	hashResvd := make([]byte, 32)
	fmt.Fprintf(&buf, "hash_resvd: %s\n", base64.StdEncoding.EncodeToString(hashResvd))
	fmt.Fprintf(&buf, "ephx25519: %s\n", base64.StdEncoding.EncodeToString(h.EphX25519PublicKey))
	fmt.Fprintf(&buf, "fin: %d\n", h.Fin)

	return buf.Bytes()
}
