// Package main implements vaultctl, which serves and queries a vault.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var opts struct {
	ConfigFile string
	DataDir    string
	Database   string
	LogLevel   string
	LogFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "vaultctl",
	Short: "Query the states recorded in a vault",
	Long: `vaultctl serves the vault query API over HTTP or runs one-off queries
against a vault database.

Configuration is read from --config (YAML or JSON), then VAULT_* environment
variables, then command line flags.

Examples:

	vaultctl serve --config /etc/vault/vault.yaml
	vaultctl query --status ALL --type FungibleAsset --page-size 20
	vaultctl types --db ./data/vault/vault.db
`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "Path to configuration file (YAML or JSON)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "Base directory for the vault database")
	flags.StringVar(&opts.Database, "db", "", "Path to the vault database")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(serveCmd, queryCmd, typesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
