// Package crypto implements Power-On Self-Tests (POST) for FIPS 140-3 compliance.
//
// IMPORTANT: POST is production code, not test code. FIPS 140-3 requires self-tests
// to run at module load time (not just during development testing) to verify the
// cryptographic implementation before any operations are performed. This catches
// issues like corrupted binaries, hardware failures, or tampered code.
//
// POST runs automatically when the crypto package is loaded and verifies that
// the primitive wrappers produce expected outputs using Known Answer Tests (KAT)
// and internal consistency checks. The wire-format KAT vectors of spec.md §8
// are ordinary tests rather than POST steps: PAE encoding in pkg/suite (and
// cross-checked in pkg/stream), KEK derivation and DEK wrap in pkg/kdf, and
// the chunk-0 ciphertext in this package's kat_test.go.
//
// In FIPS mode, POST failures cause a panic to prevent use of potentially
// compromised cryptographic implementations. In standard mode, failures are
// recorded in the POSTResult (Passed, Errors) but do not prevent operation.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// POST KAT (Known Answer Test) values.
var (
	// AES-256-GCM KAT.
	postKATAESKey, _       = hex.DecodeString("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	postKATAESNonce, _     = hex.DecodeString("000000000000000000000000")
	postKATAESPlaintext, _ = hex.DecodeString("504f53542d4b41542d54455354") // "POST-KAT-TEST"
	postKATAESExpected, _  = hex.DecodeString("5a48b3005aeb1b0a8cd6767b8cded311eb6185c16343d286e3541e9d98")

	// ML-KEM-1024 consistency test seed.
	postKATMLKEMSeed, _ = hex.DecodeString(
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef" +
			"fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210")
)

// POSTResult contains the results of Power-On Self-Tests.
type POSTResult struct {
	Passed      bool
	AESPassed   bool
	MLKEMPassed bool
	MLDSAPassed bool
	Errors      []string
}

var (
	postResult     *POSTResult
	postResultOnce sync.Once
	postRan        bool
)

// RunPOST executes the Power-On Self-Tests and returns the results.
// Safe to call multiple times; tests only run once.
func RunPOST() *POSTResult {
	postResultOnce.Do(func() {
		postResult = &POSTResult{Passed: true}

		if err := runAESGCMKAT(); err != nil {
			postResult.AESPassed = false
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("AES-GCM KAT failed: %v", err))
		} else {
			postResult.AESPassed = true
		}

		if err := runMLKEMConsistency(); err != nil {
			postResult.MLKEMPassed = false
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("ML-KEM consistency test failed: %v", err))
		} else {
			postResult.MLKEMPassed = true
		}

		if err := runMLDSAConsistency(); err != nil {
			postResult.MLDSAPassed = false
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("ML-DSA consistency test failed: %v", err))
		} else {
			postResult.MLDSAPassed = true
		}

		postRan = true

		if FIPSMode() && !postResult.Passed {
			panic(fmt.Sprintf("FIPS POST failed: %v", postResult.Errors))
		}
	})

	return postResult
}

// POSTRan returns true if POST has been executed.
func POSTRan() bool {
	return postRan
}

// POSTPassed returns true if POST has run and all tests passed.
func POSTPassed() bool {
	if postResult == nil {
		return false
	}
	return postResult.Passed
}

func runAESGCMKAT() error {
	block, err := aes.NewCipher(postKATAESKey)
	if err != nil {
		return fmt.Errorf("NewCipher failed: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("NewGCM failed: %w", err)
	}

	//nolint:gosec // G407: hardcoded nonce is required for a KAT.
	ciphertext := aesgcm.Seal(nil, postKATAESNonce, postKATAESPlaintext, nil)
	if !bytes.Equal(ciphertext, postKATAESExpected) {
		return fmt.Errorf("AES-GCM encrypt mismatch: got %x, want %x", ciphertext, postKATAESExpected)
	}

	//nolint:gosec // G407: hardcoded nonce is required for a KAT.
	plaintext, err := aesgcm.Open(nil, postKATAESNonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("AES-GCM decrypt failed: %w", err)
	}
	if !bytes.Equal(plaintext, postKATAESPlaintext) {
		return fmt.Errorf("AES-GCM decrypt mismatch: got %x, want %x", plaintext, postKATAESPlaintext)
	}

	return nil
}

// runMLKEMConsistency generates a deterministic key pair and verifies that
// encapsulation/decapsulation agree on the shared secret. ML-KEM's own
// encapsulation randomness makes a literal ciphertext KAT impractical here;
// pairwise consistency is the standard FIPS 140-3 substitute.
func runMLKEMConsistency() error {
	kp, err := NewMLKEMKeyPairFromSeed(postKATMLKEMSeed)
	if err != nil {
		return fmt.Errorf("NewMLKEMKeyPairFromSeed failed: %w", err)
	}

	if n := len(kp.PublicKeyBytes()); n != 1568 {
		return fmt.Errorf("public key size mismatch: got %d, want 1568", n)
	}

	ciphertext, sharedSecret1, err := MLKEMEncapsulate(kp.EncapsulationKey)
	if err != nil {
		return fmt.Errorf("MLKEMEncapsulate failed: %w", err)
	}
	if n := len(ciphertext); n != 1568 {
		return fmt.Errorf("ciphertext size mismatch: got %d, want 1568", n)
	}
	if n := len(sharedSecret1); n != 32 {
		return fmt.Errorf("shared secret size mismatch: got %d, want 32", n)
	}

	sharedSecret2, err := MLKEMDecapsulate(kp.DecapsulationKey, ciphertext)
	if err != nil {
		return fmt.Errorf("MLKEMDecapsulate failed: %w", err)
	}
	if !bytes.Equal(sharedSecret1, sharedSecret2) {
		return fmt.Errorf("shared secret mismatch after decapsulation")
	}

	return nil
}

// runMLDSAConsistency generates a key pair, signs a fixed message, and
// verifies the signature. ML-DSA's randomized signing makes a literal
// signature KAT impractical; sign/verify consistency is the substitute.
func runMLDSAConsistency() error {
	kp, err := GenerateMLDSAKeyPair()
	if err != nil {
		return fmt.Errorf("GenerateMLDSAKeyPair failed: %w", err)
	}

	msg := []byte("QSFS POST ML-DSA-87 consistency check")
	sig, err := MLDSASign(kp.PrivateKey, msg)
	if err != nil {
		return fmt.Errorf("MLDSASign failed: %w", err)
	}
	if !MLDSAVerify(kp.PublicKey, msg, sig) {
		return fmt.Errorf("MLDSAVerify rejected a freshly produced signature")
	}

	tampered := append([]byte(nil), msg...)
	tampered[0] ^= 0xff
	if MLDSAVerify(kp.PublicKey, tampered, sig) {
		return fmt.Errorf("MLDSAVerify accepted a signature over a tampered message")
	}

	return nil
}

// ModuleIntegrity contains information about the crypto module's integrity.
type ModuleIntegrity struct {
	ExpectedHash string
	ActualHash   string
	Verified     bool
}

var (
	postIntegrity     *ModuleIntegrity
	postIntegrityOnce sync.Once
)

// CheckModuleIntegrity performs a module integrity check over the POST KAT
// constants themselves, guarding against a tampered binary carrying silently
// altered expected values.
func CheckModuleIntegrity() *ModuleIntegrity {
	postIntegrityOnce.Do(func() {
		h := sha256.New()
		h.Write(postKATAESKey)
		h.Write(postKATAESNonce)
		h.Write(postKATAESPlaintext)
		h.Write(postKATAESExpected)
		h.Write(postKATMLKEMSeed)

		actualHash := hex.EncodeToString(h.Sum(nil))
		expectedHash := "c85a5c8120ad58dff93d3d749a1cc59927e3128e5b6b62c5d8031c3291e84529"

		postIntegrity = &ModuleIntegrity{
			ExpectedHash: expectedHash,
			ActualHash:   actualHash,
			Verified:     actualHash == expectedHash,
		}
	})

	return postIntegrity
}

// init runs POST automatically when the package is loaded.
func init() {
	RunPOST()
}
