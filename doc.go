// Package qsfs provides post-quantum file encryption using hybrid ML-KEM-1024
// (NIST FIPS 203) key establishment, optionally combined with X25519 for
// defense-in-depth, streaming chunked AEAD, and detached ML-DSA-87 (NIST
// FIPS 204) signing of the container header.
//
// # Quick Start
//
// Sealing a file to one or more recipients:
//
//	import "github.com/quantum-shield/qsfs-go/pkg/seal"
//
//	in, _ := os.Open("report.pdf")
//	err := seal.Seal(in, []seal.Recipient{
//		{Label: "alice", MLKEMKey: aliceMLKEMPub},
//	}, "report.pdf.qsfs", seal.Options{})
//
// Unsealing it back:
//
//	in, _ := os.Open("report.pdf.qsfs")
//	err := seal.Unseal(in, "report.pdf", seal.UnsealOptions{
//		MLKEMKey: aliceMLKEMPriv,
//	})
//
// # Package Structure
//
//   - pkg/seal: top-level Seal/Unseal orchestration
//   - pkg/crypto: low-level primitives (ML-KEM, X25519, ML-DSA, AEAD, CSPRNG)
//   - pkg/header: canonical on-disk container header, its signing text, and
//     its binary wire codec
//   - pkg/stream: streaming chunked AEAD framing over the sealed payload
//   - pkg/kdf: HKDF-SHA3-384 key schedule (stream keys, per-recipient KEK,
//     DEK wrap/unwrap, X25519 fingerprint)
//   - pkg/suite: prefix-free authenticated encoding (PAE) used to bind the
//     container's cipher suite, chunk size, file id, and KDF salt into AEAD
//     associated data
//   - pkg/signer: ML-DSA-87 header signing and trust-gated verification
//   - pkg/trust: the trust-store interface consulted during verification
//   - pkg/observability: structured logging, span tracing, metrics
//     collection, and Prometheus/health endpoints for long-running callers
//   - internal/constants: security parameters and on-disk format constants
//   - internal/errors: sentinel errors and wrapper types for detailed
//     failure reporting
//
// # Security Properties
//
//   - Hybrid key establishment: secure if EITHER ML-KEM-1024 or X25519 is
//     secure, when sealed in hybrid mode
//   - Forward secrecy: a fresh content-encryption key is generated per seal
//   - Authenticated encryption: AES-256-GCM-SIV by default (nonce-misuse
//     resistant), ChaCha20-Poly1305 cascade optional
//   - Detached signing: the canonical header, not the ciphertext stream, is
//     what ML-DSA-87 signs
//   - Trial-based recipient recovery: decapsulation failures never leak
//     which recipient entry, if any, matches the caller's key
//
// # References
//
//   - NIST FIPS 203: Module-Lattice-Based Key-Encapsulation Mechanism Standard
//   - NIST FIPS 204: Module-Lattice-Based Digital Signature Standard
//   - RFC 7748: Elliptic Curves for Security
//
// For more information, see: https://github.com/quantum-shield/qsfs-go
package qsfs
