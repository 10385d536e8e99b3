// mldsa.go implements the ML-DSA-87 signature wrapper used to sign and
// verify a sealed file's canonical header.
//
// ML-DSA (Module-Lattice-based Digital Signature Algorithm) is standardized
// in NIST FIPS 204. ML-DSA-87 targets NIST Category 5, matching ML-KEM-1024.
package crypto

import (
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	qerrors "github.com/quantum-shield/qsfs-go/internal/errors"
)

// MLDSAPublicKey wraps an ML-DSA-87 public key.
type MLDSAPublicKey struct {
	key *mldsa87.PublicKey
}

// MLDSAPrivateKey wraps an ML-DSA-87 private key.
type MLDSAPrivateKey struct {
	key *mldsa87.PrivateKey
}

// MLDSAKeyPair is an ML-DSA-87 signing key pair.
type MLDSAKeyPair struct {
	PublicKey  *MLDSAPublicKey
	PrivateKey *MLDSAPrivateKey
}

// GenerateMLDSAKeyPair generates a new ML-DSA-87 signing key pair.
func GenerateMLDSAKeyPair() (*MLDSAKeyPair, error) {
	pub, priv, err := mldsa87.GenerateKey(Reader)
	if err != nil {
		return nil, qerrors.NewCryptoError("MLDSAKeyPair.Generate", err)
	}

	return &MLDSAKeyPair{
		PublicKey:  &MLDSAPublicKey{key: pub},
		PrivateKey: &MLDSAPrivateKey{key: priv},
	}, nil
}

// MLDSASign produces a detached ML-DSA-87 signature over message using sk.
// No separate context string is used (empty context, matching the header
// signing protocol, which carries its own domain separation in the
// canonical text itself).
func MLDSASign(sk *MLDSAPrivateKey, message []byte) ([]byte, error) {
	if sk == nil || sk.key == nil {
		return nil, qerrors.ErrInvalidKey
	}

	sig := make([]byte, mldsa87.SignatureSize)
	if err := mldsa87.SignTo(sk.key, message, nil, false, sig); err != nil {
		return nil, qerrors.NewCryptoError("MLDSASign", err)
	}
	return sig, nil
}

// MLDSAVerify reports whether sig is a valid ML-DSA-87 signature over
// message under pk.
func MLDSAVerify(pk *MLDSAPublicKey, message, sig []byte) bool {
	if pk == nil || pk.key == nil {
		return false
	}
	return mldsa87.Verify(pk.key, message, nil, sig)
}

// Bytes returns the encoded bytes of the public key.
func (pk *MLDSAPublicKey) Bytes() []byte {
	if pk == nil || pk.key == nil {
		return nil
	}
	b, _ := pk.key.MarshalBinary()
	return b
}

// ParseMLDSAPublicKey parses an ML-DSA-87 public key from its encoded form.
func ParseMLDSAPublicKey(data []byte) (*MLDSAPublicKey, error) {
	if len(data) != constants.MLDSAPublicKeySize {
		return nil, qerrors.ErrInvalidKey
	}

	pk := new(mldsa87.PublicKey)
	if err := pk.UnmarshalBinary(data); err != nil {
		return nil, qerrors.NewCryptoError("ParseMLDSAPublicKey", err)
	}
	return &MLDSAPublicKey{key: pk}, nil
}

// Bytes returns the encoded bytes of the signing key. Callers that persist
// this to disk are responsible for the storage's confidentiality.
func (sk *MLDSAPrivateKey) Bytes() []byte {
	if sk == nil || sk.key == nil {
		return nil
	}
	b, _ := sk.key.MarshalBinary()
	return b
}

// PrivateKeyBytes returns the encoded bytes of the signing key.
func (kp *MLDSAKeyPair) PrivateKeyBytes() []byte {
	return kp.PrivateKey.Bytes()
}

// ParseMLDSAPrivateKey parses an ML-DSA-87 signing key from its encoded
// form, as produced by (*MLDSAPrivateKey).Bytes.
func ParseMLDSAPrivateKey(data []byte) (*MLDSAPrivateKey, error) {
	if len(data) != constants.MLDSAPrivateKeySize {
		return nil, qerrors.ErrInvalidKey
	}

	sk := new(mldsa87.PrivateKey)
	if err := sk.UnmarshalBinary(data); err != nil {
		return nil, qerrors.NewCryptoError("ParseMLDSAPrivateKey", err)
	}
	return &MLDSAPrivateKey{key: sk}, nil
}

// Zeroize clears the key pair's references. CIRCL does not expose direct
// in-place zeroization of ML-DSA secret key material.
func (kp *MLDSAKeyPair) Zeroize() {
	kp.PrivateKey = nil
	kp.PublicKey = nil
}
