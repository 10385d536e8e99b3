package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantum-shield/qsfs-go/pkg/crypto"
	"github.com/quantum-shield/qsfs-go/pkg/observability"
	"github.com/quantum-shield/qsfs-go/pkg/seal"
)

var unsealCmd = &cobra.Command{
	Use:   "unseal",
	Short: "Unseal a container previously sealed with 'qsfs seal'",
	Args:  cobra.NoArgs,
	RunE:  runUnseal,
}

var (
	unsealIn             string
	unsealOut            string
	unsealMLKEMKeyPath   string
	unsealX25519KeyPath  string
	unsealTrustStorePath string
	unsealAllowUnsigned  bool
	unsealTrustAny       bool
	unsealCascade        bool
)

func init() {
	unsealCmd.Flags().StringVar(&unsealIn, "in", "", "Input container path (required)")
	unsealCmd.Flags().StringVar(&unsealOut, "out", "", "Output plaintext path (required)")
	unsealCmd.Flags().StringVar(&unsealMLKEMKeyPath, "mlkem-key", "", "Path to the recipient's ML-KEM-1024 private key (required)")
	unsealCmd.Flags().StringVar(&unsealX25519KeyPath, "x25519-key", "", "Path to the recipient's X25519 private key (required if the file was sealed with --hybrid)")
	unsealCmd.Flags().StringVar(&unsealTrustStorePath, "trust-store", "trust.json", "Path to the trust store file")
	unsealCmd.Flags().BoolVar(&unsealAllowUnsigned, "allow-unsigned", false, "Accept an unsigned header")
	unsealCmd.Flags().BoolVar(&unsealTrustAny, "trust-any-signer", false, "Accept any validly signed header regardless of the trust store")
	unsealCmd.Flags().BoolVar(&unsealCascade, "cascade", false, "Must match the --cascade setting used at seal time")
	unsealCmd.MarkFlagRequired("in")
	unsealCmd.MarkFlagRequired("out")
	unsealCmd.MarkFlagRequired("mlkem-key")
}

func runUnseal(cmd *cobra.Command, args []string) error {
	log := observability.GetLogger().Named("unseal")

	mlkemBytes, err := os.ReadFile(unsealMLKEMKeyPath)
	if err != nil {
		return fmt.Errorf("read ML-KEM private key: %w", err)
	}
	mlkemKey, err := crypto.ParseMLKEMPrivateKey(mlkemBytes)
	if err != nil {
		return fmt.Errorf("parse ML-KEM private key: %w", err)
	}

	opts := seal.UnsealOptions{
		MLKEMKey:       mlkemKey,
		AllowUnsigned:  unsealAllowUnsigned,
		TrustAnySigner: unsealTrustAny,
		Cascade:        unsealCascade,
	}

	if unsealX25519KeyPath != "" {
		x25519Bytes, err := os.ReadFile(unsealX25519KeyPath)
		if err != nil {
			return fmt.Errorf("read X25519 private key: %w", err)
		}
		x25519KP, err := crypto.NewX25519KeyPairFromBytes(x25519Bytes)
		if err != nil {
			return fmt.Errorf("parse X25519 private key: %w", err)
		}
		opts.X25519Key = x25519KP.PrivateKey
	}

	tf, err := loadTrustFile(unsealTrustStorePath)
	if err != nil {
		return err
	}
	opts.TrustStore = tf.toStore()

	in, err := os.Open(unsealIn)
	if err != nil {
		return fmt.Errorf("open input container: %w", err)
	}
	defer in.Close()

	log.Info("unseal started", observability.Fields{"in": unsealIn})

	if err := seal.Unseal(in, unsealOut, opts); err != nil {
		log.Error("unseal failed", observability.Fields{"error": err.Error()})
		return err
	}

	log.Info("unseal complete", observability.Fields{"out": unsealOut})
	fmt.Printf("unsealed %s\n", unsealOut)
	return nil
}
