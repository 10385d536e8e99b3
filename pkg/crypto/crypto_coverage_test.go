package crypto

import (
	"errors"
	"testing"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
)

func TestNewAEADInvalidSuite(t *testing.T) {
	key := make([]byte, 32)
	_, err := NewAEAD(constants.Suite(0xFF), key)
	if !errors.Is(err, qerrors.ErrUnsupportedSuite) {
		t.Errorf("expected ErrUnsupportedSuite, got %v", err)
	}
}

func TestAEADSealOpenErrors(t *testing.T) {
	key := make([]byte, 32)
	aead, err := NewAEAD(constants.SuiteAES256GCM, key)
	if err != nil {
		t.Fatalf("NewAEAD failed: %v", err)
	}

	// Short nonce for Seal
	if _, err := aead.Seal(make([]byte, 5), nil, nil); err == nil {
		t.Error("expected error for invalid nonce size in Seal")
	}

	// Short nonce for Open
	nonce := make([]byte, constants.AESNonceSize)
	if _, err := aead.Open(make([]byte, 5), make([]byte, 20), nil); err == nil {
		t.Error("expected error for invalid nonce size in Open")
	}
	_ = nonce
}

func TestAEADSIVRejectsWrongChunkNonce(t *testing.T) {
	key := make([]byte, 32)
	aead, err := NewAEAD(constants.SuiteAES256GCMSIV, key)
	if err != nil {
		t.Fatalf("NewAEAD failed: %v", err)
	}

	nonceA := make([]byte, constants.AESNonceSize)
	nonceA[0] = 1
	nonceB := make([]byte, constants.AESNonceSize)
	nonceB[0] = 2

	ciphertext, err := aead.Seal(nonceA, []byte("chunk"), []byte("aad"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if _, err := aead.Open(nonceB, ciphertext, []byte("aad")); err == nil {
		t.Error("expected error opening a GCM-SIV chunk under a different chunk-position nonce")
	}

	if got := aead.Overhead(); got != constants.AESTagSize {
		t.Errorf("Overhead: got %d, want %d", got, constants.AESTagSize)
	}
}
