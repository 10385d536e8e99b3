package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantum-shield/qsfs-go/pkg/crypto"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an ML-KEM-1024, X25519, or ML-DSA-87 key pair",
	Long: `Generate a key pair and write its public and private halves to disk as
raw encoded bytes, named <out>.<kind>.pub and <out>.<kind>.key.

KIND is one of: mlkem, x25519, mldsa.`,
	Args: cobra.NoArgs,
	RunE: runKeygen,
}

var (
	keygenKind string
	keygenOut  string
)

func init() {
	keygenCmd.Flags().StringVar(&keygenKind, "kind", "", "Key kind: mlkem, x25519, mldsa (required)")
	keygenCmd.Flags().StringVar(&keygenOut, "out", "", "Output path prefix (required)")
	keygenCmd.MarkFlagRequired("kind")
	keygenCmd.MarkFlagRequired("out")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	var pub, priv []byte

	switch keygenKind {
	case "mlkem":
		kp, err := crypto.GenerateMLKEMKeyPair()
		if err != nil {
			return fmt.Errorf("generate ML-KEM key pair: %w", err)
		}
		pub, priv = kp.PublicKeyBytes(), kp.PrivateKeyBytes()
	case "x25519":
		kp, err := crypto.GenerateX25519KeyPair()
		if err != nil {
			return fmt.Errorf("generate X25519 key pair: %w", err)
		}
		pub, priv = kp.PublicKeyBytes(), kp.PrivateKeyBytes()
	case "mldsa":
		kp, err := crypto.GenerateMLDSAKeyPair()
		if err != nil {
			return fmt.Errorf("generate ML-DSA key pair: %w", err)
		}
		pub, priv = kp.PublicKey.Bytes(), kp.PrivateKeyBytes()
	default:
		return fmt.Errorf("unknown key kind %q: want mlkem, x25519, or mldsa", keygenKind)
	}

	pubPath := keygenOut + "." + keygenKind + ".pub"
	keyPath := keygenOut + "." + keygenKind + ".key"

	if err := os.MkdirAll(filepath.Dir(keygenOut), 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	if err := os.WriteFile(keyPath, priv, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	fmt.Printf("wrote %s and %s\n", pubPath, keyPath)
	return nil
}
