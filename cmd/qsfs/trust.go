package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantum-shield/qsfs-go/pkg/signer"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage the local trust store used to verify signed containers",
}

var trustStorePath string

func init() {
	trustCmd.PersistentFlags().StringVar(&trustStorePath, "store", "trust.json", "Path to the trust store file")

	trustCmd.AddCommand(trustAddCmd)
	trustCmd.AddCommand(trustListCmd)
	trustCmd.AddCommand(trustRemoveCmd)
}

var trustAddCmd = &cobra.Command{
	Use:   "add <mldsa-pubkey-file>",
	Short: "Trust the signer identified by an ML-DSA-87 public key file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}

		tf, err := loadTrustFile(trustStorePath)
		if err != nil {
			return err
		}

		id := signer.SignerID(pub)
		tf.Signers[id] = hex.EncodeToString(pub)

		if err := tf.save(trustStorePath); err != nil {
			return err
		}
		fmt.Printf("trusted signer %s (pinned key from %s)\n", id, args[0])
		return nil
	},
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trusted signer ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tf, err := loadTrustFile(trustStorePath)
		if err != nil {
			return err
		}
		for _, id := range tf.sortedIDs() {
			pinned := "unpinned"
			if tf.Signers[id] != "" {
				pinned = "pinned"
			}
			fmt.Printf("%s  %s\n", id, pinned)
		}
		return nil
	},
}

var trustRemoveCmd = &cobra.Command{
	Use:   "remove <signer-id>",
	Short: "Revoke trust in a signer id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tf, err := loadTrustFile(trustStorePath)
		if err != nil {
			return err
		}
		delete(tf.Signers, args[0])
		if err := tf.save(trustStorePath); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}
