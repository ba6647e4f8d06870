// Package main provides kgctl, the TelaMentis operator CLI.
//
// kgctl talks to a running TelaMentis server over its REST surface. The
// server endpoint and default tenant come from flags, environment variables
// (KGCTL_-prefixed) or a config file, in that precedence order:
//
//	kgctl health
//	kgctl tenant create acme --name "Acme Corp"
//	kgctl query nodes --tenant acme --label Person
//	kgctl query rels --tenant acme --type WORKS_FOR --valid-at 2024-06-01T00:00:00Z
//	kgctl ingest --tenant acme "Alice works for Acme since 2023"
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kgctl",
		Short: "kgctl - TelaMentis knowledge graph control",
		Long: `kgctl is the operator CLI for a running TelaMentis server.

It covers health probes, tenant administration, structured queries
(including temporal as-of queries) and LLM-backed text ingestion.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("server", "http://localhost:8787", "TelaMentis server base URL")
	rootCmd.PersistentFlags().String("tenant", "", "tenant id for graph and llm operations")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "per-request timeout")

	viper.SetEnvPrefix("KGCTL")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	viper.SetConfigName("kgctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config/telamentis")
	}
	// A missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()

	rootCmd.AddCommand(
		newHealthCmd(),
		newTenantCmd(),
		newQueryCmd(),
		newIngestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func clientFromConfig() *client {
	return newClient(viper.GetString("server"), viper.GetDuration("timeout"))
}

func requireTenant() (string, error) {
	tenant := viper.GetString("tenant")
	if tenant == "" {
		return "", fmt.Errorf("a tenant is required (--tenant flag or KGCTL_TENANT)")
	}
	return tenant, nil
}
