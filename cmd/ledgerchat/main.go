// Command ledgerchat runs an interactive demo of the synchronization core
// against an in-process ledger, including account switching to exercise the
// identity-change flow end to end.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var config = viper.New()

var rootCmd = &cobra.Command{
	Use:   "ledgerchat",
	Short: "Ledger-backed peer-to-peer messaging demo client",
	Long: `ledgerchat is a demo client for the ledger-backed messaging core.

It runs against an in-process ledger seeded with demo accounts, so the full
session flow can be exercised without a deployed contract: connect, add
friends, open threads, send messages, and switch accounts to trigger
identity rebinding.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
	},
}

func initConfig() {
	config.SetDefault("default_username", "Guest")
	config.SetDefault("log_level", "warn")

	home, err := os.UserHomeDir()
	if err == nil {
		config.SetConfigName(".ledgerchat")
		config.SetConfigType("yaml")
		config.AddConfigPath(home)
		// A missing config file is fine; defaults apply.
		_ = config.ReadInConfig()
	}

	level, err := logrus.ParseLevel(config.GetString("log_level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)
}

func main() {
	rootCmd.AddCommand(demoCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("default-username", "Guest", "Username used when account creation is not prompted")
	_ = config.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = config.BindPFlag("default_username", rootCmd.PersistentFlags().Lookup("default-username"))
}
