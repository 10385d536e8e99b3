// Command qsfs is a thin demonstration front end for the pkg/seal,
// pkg/signer and pkg/trust APIs: generate key material, seal a file to one
// or more recipients, and unseal it back. It exists to exercise the
// library end to end; it is not the package's spec surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantum-shield/qsfs-go/pkg/observability"
	pkgversion "github.com/quantum-shield/qsfs-go/pkg/version"
)

// Build-time variables (set via -ldflags).
var (
	buildVersion = ""
	buildTime    = "unknown"
	gitCommit    = "unknown"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "qsfs",
	Short: "Post-quantum file sealing (ML-KEM-1024 + ML-DSA-87, optional X25519 hybrid)",
	Long: `qsfs seals and unseals files for one or more recipients using hybrid
ML-KEM-1024 key establishment, streaming chunked AEAD, and detached
ML-DSA-87 signing of the container header.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.SetLogger(observability.NewLogger(
			observability.WithLevel(observability.ParseLevel(logLevel)),
			observability.WithFormat(parseLogFormat(logFormat)),
			observability.WithName("qsfs"),
		))
	},
}

func parseLogFormat(s string) observability.Format {
	if s == "json" {
		return observability.FormatJSON
	}
	return observability.FormatText
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error, silent")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(sealCmd)
	rootCmd.AddCommand(unsealCmd)
	rootCmd.AddCommand(trustCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := buildVersion
		if v == "" {
			v = pkgversion.String()
		}
		fmt.Printf("qsfs %s\n", v)
		if buildTime != "unknown" {
			fmt.Printf("Built: %s\n", buildTime)
		}
		if gitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", gitCommit)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
