package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantum-shield/qsfs-go/internal/constants"
	"github.com/quantum-shield/qsfs-go/pkg/crypto"
	"github.com/quantum-shield/qsfs-go/pkg/observability"
	"github.com/quantum-shield/qsfs-go/pkg/seal"
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Seal a file to one or more recipients",
	Args:  cobra.NoArgs,
	RunE:  runSeal,
}

var (
	sealIn         string
	sealOut        string
	sealRecipients []string
	sealHybrid     bool
	sealCascade    bool
	sealSuite      string
	sealChunkSize  uint32
	sealSignKey    string
)

func init() {
	sealCmd.Flags().StringVar(&sealIn, "in", "-", "Input file path, or - for stdin")
	sealCmd.Flags().StringVar(&sealOut, "out", "", "Output container path (required)")
	sealCmd.Flags().StringArrayVar(&sealRecipients, "recipient", nil,
		"label=mlkem-pubkey-path[,x25519-pubkey-path] (repeatable, at least one required)")
	sealCmd.Flags().BoolVar(&sealHybrid, "hybrid", false, "Enable X25519 hybrid key establishment")
	sealCmd.Flags().BoolVar(&sealCascade, "cascade", false, "Enable the ChaCha20-Poly1305 inner cascade layer")
	sealCmd.Flags().StringVar(&sealSuite, "suite", "aes-gcm-siv", "Outer AEAD suite: aes-gcm-siv or aes-gcm")
	sealCmd.Flags().Uint32Var(&sealChunkSize, "chunk-size", 0, "Streaming chunk size in bytes (0 = default)")
	sealCmd.Flags().StringVar(&sealSignKey, "sign", "", "Key prefix (as written by 'qsfs keygen --kind mldsa') to sign the header with")
	sealCmd.MarkFlagRequired("out")
}

func parseSuite(s string) (constants.Suite, error) {
	switch strings.ToLower(s) {
	case "aes-gcm-siv", "":
		return constants.SuiteAES256GCMSIV, nil
	case "aes-gcm":
		return constants.SuiteAES256GCM, nil
	default:
		return 0, fmt.Errorf("unknown suite %q: want aes-gcm-siv or aes-gcm", s)
	}
}

func parseRecipient(spec string) (seal.Recipient, error) {
	labelAndPaths := strings.SplitN(spec, "=", 2)
	if len(labelAndPaths) != 2 {
		return seal.Recipient{}, fmt.Errorf("malformed --recipient %q: want label=mlkem-pubkey-path[,x25519-pubkey-path]", spec)
	}
	label := labelAndPaths[0]
	paths := strings.SplitN(labelAndPaths[1], ",", 2)

	mlkemBytes, err := os.ReadFile(paths[0])
	if err != nil {
		return seal.Recipient{}, fmt.Errorf("read ML-KEM public key for %s: %w", label, err)
	}
	mlkemKey, err := crypto.ParseMLKEMPublicKey(mlkemBytes)
	if err != nil {
		return seal.Recipient{}, fmt.Errorf("parse ML-KEM public key for %s: %w", label, err)
	}

	rcpt := seal.Recipient{Label: label, MLKEMKey: mlkemKey}

	if len(paths) == 2 {
		x25519Bytes, err := os.ReadFile(paths[1])
		if err != nil {
			return seal.Recipient{}, fmt.Errorf("read X25519 public key for %s: %w", label, err)
		}
		x25519Key, err := crypto.ParseX25519PublicKey(x25519Bytes)
		if err != nil {
			return seal.Recipient{}, fmt.Errorf("parse X25519 public key for %s: %w", label, err)
		}
		rcpt.X25519Key = x25519Key
	}

	return rcpt, nil
}

func loadSigner(prefix string) (*crypto.MLDSAKeyPair, error) {
	pubBytes, err := os.ReadFile(prefix + ".mldsa.pub")
	if err != nil {
		return nil, fmt.Errorf("read signing public key: %w", err)
	}
	privBytes, err := os.ReadFile(prefix + ".mldsa.key")
	if err != nil {
		return nil, fmt.Errorf("read signing private key: %w", err)
	}
	pub, err := crypto.ParseMLDSAPublicKey(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing public key: %w", err)
	}
	priv, err := crypto.ParseMLDSAPrivateKey(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing private key: %w", err)
	}
	return &crypto.MLDSAKeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

func runSeal(cmd *cobra.Command, args []string) error {
	if len(sealRecipients) == 0 {
		return fmt.Errorf("at least one --recipient is required")
	}

	log := observability.GetLogger().Named("seal")

	recipients := make([]seal.Recipient, len(sealRecipients))
	for i, spec := range sealRecipients {
		rcpt, err := parseRecipient(spec)
		if err != nil {
			return err
		}
		recipients[i] = rcpt
	}

	suiteVal, err := parseSuite(sealSuite)
	if err != nil {
		return err
	}

	opts := seal.Options{
		Suite:     suiteVal,
		ChunkSize: sealChunkSize,
		Hybrid:    sealHybrid,
		Cascade:   sealCascade,
	}

	if sealSignKey != "" {
		kp, err := loadSigner(sealSignKey)
		if err != nil {
			return err
		}
		opts.Signer = kp
	}

	var in *os.File
	if sealIn == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(sealIn)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	log.Info("seal started", observability.Fields{
		"recipients": len(recipients),
		"hybrid":     sealHybrid,
		"cascade":    sealCascade,
		"suite":      suiteVal.String(),
	})

	if err := seal.Seal(in, recipients, sealOut, opts); err != nil {
		log.Error("seal failed", observability.Fields{"error": err.Error()})
		return err
	}

	log.Info("seal complete", observability.Fields{"out": sealOut})
	fmt.Printf("sealed %s\n", sealOut)
	return nil
}
