package seal_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
	"github.com/quantum-shield/qsfs-go/pkg/crypto"
	"github.com/quantum-shield/qsfs-go/pkg/header"
	"github.com/quantum-shield/qsfs-go/pkg/seal"
	"github.com/quantum-shield/qsfs-go/pkg/trust"
)

func sealRoundTrip(t *testing.T, opts seal.Options, plaintext []byte) (string, *crypto.MLKEMKeyPair, *crypto.X25519KeyPair) {
	t.Helper()

	mlkemKP, err := crypto.GenerateMLKEMKeyPair()
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair: %v", err)
	}

	var x25519KP *crypto.X25519KeyPair

	recipients := []seal.Recipient{{Label: "alice", MLKEMKey: mlkemKP.EncapsulationKey}}

	if opts.Hybrid {
		x25519KP, err = crypto.GenerateX25519KeyPair()
		if err != nil {
			t.Fatalf("GenerateX25519KeyPair: %v", err)
		}
		recipients[0].X25519Key = x25519KP.PublicKey
	}

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.qsfs")

	if err := seal.Seal(bytes.NewReader(plaintext), recipients, outputPath, opts); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	return outputPath, mlkemKP, x25519KP
}

func TestProperty4SealUnsealRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeated enough to span multiple chunks.\n")
	outputPath, mlkemKP, _ := sealRoundTrip(t, seal.Options{ChunkSize: 16}, plaintext)

	sealed, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open sealed file: %v", err)
	}
	defer sealed.Close()

	decryptedPath := filepath.Join(filepath.Dir(outputPath), "decrypted.txt")
	err = seal.Unseal(sealed, decryptedPath, seal.UnsealOptions{
		MLKEMKey:      mlkemKP.DecapsulationKey,
		AllowUnsigned: true,
	})
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}

	got, err := os.ReadFile(decryptedPath)
	if err != nil {
		t.Fatalf("read decrypted output: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch:\n got  %q\n want %q", got, plaintext)
	}
}

func TestSealUnsealRoundTripHybrid(t *testing.T) {
	plaintext := []byte("hybrid key establishment payload")
	outputPath, mlkemKP, x25519KP := sealRoundTrip(t, seal.Options{ChunkSize: 1024, Hybrid: true}, plaintext)

	sealed, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open sealed file: %v", err)
	}
	defer sealed.Close()

	decryptedPath := filepath.Join(filepath.Dir(outputPath), "decrypted.txt")
	err = seal.Unseal(sealed, decryptedPath, seal.UnsealOptions{
		MLKEMKey:      mlkemKP.DecapsulationKey,
		X25519Key:     x25519KP.PrivateKey,
		AllowUnsigned: true,
	})
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}

	got, err := os.ReadFile(decryptedPath)
	if err != nil {
		t.Fatalf("read decrypted output: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("hybrid round trip mismatch:\n got  %q\n want %q", got, plaintext)
	}
}

func TestSealUnsealRoundTripCascade(t *testing.T) {
	plaintext := []byte("cascade layered payload, spanning several chunks of ciphertext material.\n")
	outputPath, mlkemKP, _ := sealRoundTrip(t, seal.Options{ChunkSize: 16, Cascade: true}, plaintext)

	sealed, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open sealed file: %v", err)
	}
	defer sealed.Close()

	decryptedPath := filepath.Join(filepath.Dir(outputPath), "decrypted.txt")
	err = seal.Unseal(sealed, decryptedPath, seal.UnsealOptions{
		MLKEMKey:      mlkemKP.DecapsulationKey,
		AllowUnsigned: true,
		Cascade:       true,
	})
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}

	got, err := os.ReadFile(decryptedPath)
	if err != nil {
		t.Fatalf("read decrypted output: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("cascade round trip mismatch:\n got  %q\n want %q", got, plaintext)
	}
}

func TestUnsealFailsWithMismatchedCascadeConfig(t *testing.T) {
	plaintext := []byte("sealed with cascade, read without it")
	outputPath, mlkemKP, _ := sealRoundTrip(t, seal.Options{ChunkSize: 16, Cascade: true}, plaintext)

	sealed, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open sealed file: %v", err)
	}
	defer sealed.Close()

	decryptedPath := filepath.Join(filepath.Dir(outputPath), "decrypted-mismatch.txt")
	err = seal.Unseal(sealed, decryptedPath, seal.UnsealOptions{
		MLKEMKey:      mlkemKP.DecapsulationKey,
		AllowUnsigned: true,
		// Cascade intentionally left false despite the file being sealed
		// with cascade enabled: each frame carries both the inner and the
		// outer tag (a full 16-byte chunk becomes 48 bytes), which exceeds
		// the chunk_size + 16 bound a non-cascade reader accepts, so the
		// first frame is rejected.
	})
	if !qerrors.Is(err, qerrors.ErrChunkTooLarge) {
		t.Fatalf("expected ErrChunkTooLarge for a mismatched cascade configuration, got %v", err)
	}
	if _, statErr := os.Stat(decryptedPath); statErr == nil {
		t.Error("Unseal must not publish an output file when a frame is rejected")
	}
}

func TestSealUnsealSignedRequiresTrust(t *testing.T) {
	mlkemKP, err := crypto.GenerateMLKEMKeyPair()
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair: %v", err)
	}
	signerKP, err := crypto.GenerateMLDSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateMLDSAKeyPair: %v", err)
	}

	recipients := []seal.Recipient{{Label: "alice", MLKEMKey: mlkemKP.EncapsulationKey}}
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.qsfs")
	plaintext := []byte("signed payload")

	opts := seal.Options{ChunkSize: 1024, Signer: signerKP}
	if err := seal.Seal(bytes.NewReader(plaintext), recipients, outputPath, opts); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	sealed, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open sealed file: %v", err)
	}
	defer sealed.Close()

	decryptedPath := filepath.Join(dir, "decrypted.txt")
	err = seal.Unseal(sealed, decryptedPath, seal.UnsealOptions{
		MLKEMKey:   mlkemKP.DecapsulationKey,
		TrustStore: trust.NewMapStore(), // signer not trusted
	})
	if !qerrors.Is(err, qerrors.ErrSignerUntrusted) {
		t.Errorf("expected ErrSignerUntrusted, got %v", err)
	}
}

// TestProperty7SignatureBitFlipFailsBeforeAEAD verifies flipping the
// signature bit fails verification before any AEAD operation runs
// (spec.md §8 property 7).
func TestProperty7SignatureBitFlipFailsBeforeAEAD(t *testing.T) {
	mlkemKP, err := crypto.GenerateMLKEMKeyPair()
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair: %v", err)
	}
	signerKP, err := crypto.GenerateMLDSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateMLDSAKeyPair: %v", err)
	}

	recipients := []seal.Recipient{{Label: "alice", MLKEMKey: mlkemKP.EncapsulationKey}}
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.qsfs")
	plaintext := []byte("signed payload")

	opts := seal.Options{ChunkSize: 1024, Signer: signerKP}
	if err := seal.Seal(bytes.NewReader(plaintext), recipients, outputPath, opts); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read sealed file: %v", err)
	}
	// The container is u32_be(header_len) || header || frames; flip one bit
	// inside the header's mldsa_sig field.
	hdrLen := binary.BigEndian.Uint32(raw[:4])
	hdr, err := header.Decode(raw[4 : 4+hdrLen])
	if err != nil {
		t.Fatalf("decode sealed header: %v", err)
	}
	sigOffset := bytes.Index(raw[4:4+hdrLen], hdr.MLDSASignature)
	if sigOffset < 0 {
		t.Fatal("mldsa_sig not found in the encoded header")
	}
	raw[4+sigOffset] ^= 0x01
	tampered := filepath.Join(dir, "tampered.qsfs")
	if err := os.WriteFile(tampered, raw, 0o600); err != nil {
		t.Fatalf("write tampered file: %v", err)
	}

	sealedFile, err := os.Open(tampered)
	if err != nil {
		t.Fatalf("open tampered file: %v", err)
	}
	defer sealedFile.Close()

	decryptedPath := filepath.Join(dir, "decrypted.txt")
	err = seal.Unseal(sealedFile, decryptedPath, seal.UnsealOptions{
		MLKEMKey:       mlkemKP.DecapsulationKey,
		TrustAnySigner: true,
	})
	if err == nil {
		t.Fatal("expected Unseal to fail after a header bit flip")
	}
	if _, statErr := os.Stat(decryptedPath); statErr == nil {
		t.Error("Unseal must not publish an output file when verification fails")
	}
}

func TestUnsealFailsWithWrongRecipientKey(t *testing.T) {
	plaintext := []byte("only alice can read this")
	outputPath, _, _ := sealRoundTrip(t, seal.Options{ChunkSize: 1024}, plaintext)

	wrongKP, err := crypto.GenerateMLKEMKeyPair()
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair: %v", err)
	}

	sealed, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open sealed file: %v", err)
	}
	defer sealed.Close()

	decryptedPath := filepath.Join(filepath.Dir(outputPath), "decrypted.txt")
	err = seal.Unseal(sealed, decryptedPath, seal.UnsealOptions{
		MLKEMKey:      wrongKP.DecapsulationKey,
		AllowUnsigned: true,
	})
	if !qerrors.Is(err, qerrors.ErrNoMatchingRecipient) {
		t.Errorf("expected ErrNoMatchingRecipient, got %v", err)
	}
	if _, statErr := os.Stat(decryptedPath); statErr == nil {
		t.Error("Unseal must not publish an output file when no recipient matches")
	}
}

func TestSealAtomicOutputNotPublishedOnFailure(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.qsfs")

	// No recipients: Seal must fail before ever touching outputPath.
	err := seal.Seal(bytes.NewReader([]byte("x")), nil, outputPath, seal.Options{})
	if err == nil {
		t.Fatal("expected Seal with no recipients to fail")
	}
	if _, statErr := os.Stat(outputPath); statErr == nil {
		t.Error("Seal must not create the output file on failure")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no leftover temp files, found %v", entries)
	}
}

func TestSealDefaultsSuiteAndChunkSize(t *testing.T) {
	plaintext := []byte("defaults")
	mlkemKP, err := crypto.GenerateMLKEMKeyPair()
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair: %v", err)
	}
	recipients := []seal.Recipient{{Label: "alice", MLKEMKey: mlkemKP.EncapsulationKey}}
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.qsfs")

	if err := seal.Seal(bytes.NewReader(plaintext), recipients, outputPath, seal.Options{}); err != nil {
		t.Fatalf("Seal with zero-value Options: %v", err)
	}

	sealed, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("open sealed file: %v", err)
	}
	defer sealed.Close()

	decryptedPath := filepath.Join(dir, "decrypted.txt")
	err = seal.Unseal(sealed, decryptedPath, seal.UnsealOptions{
		MLKEMKey:      mlkemKP.DecapsulationKey,
		AllowUnsigned: true,
	})
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}

	got, err := os.ReadFile(decryptedPath)
	if err != nil {
		t.Fatalf("read decrypted output: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("defaults round trip mismatch:\n got  %q\n want %q", got, plaintext)
	}
}
