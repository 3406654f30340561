// Package cmd implements the kfix command-line interface.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kfix-sh/kfix/internal/config"
)

var (
	// Persistent flags
	flagContext  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "kfix",
	Short: "AI-powered Kubernetes troubleshooter",
	Long: `kfix gathers diagnostics from a Kubernetes cluster with kubectl, asks an
AI model for a diagnosis, and can extract and run suggested remediation
commands under a tiered safety policy with operator confirmation.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		bindFlagEnv(cmd)
	},
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&flagContext, "context", "", "Kubernetes context to use (default: current context)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func initEnv() {
	viper.SetEnvPrefix("KFIX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindFlagEnv lets KFIX_* environment variables stand in for flags the
// user did not set explicitly (KFIX_LOG_LEVEL, KFIX_CONTEXT, ...).
// Command-line flags always win.
func bindFlagEnv(cmd *cobra.Command) {
	bind := func(f *pflag.Flag) {
		if !f.Changed && viper.IsSet(f.Name) {
			_ = f.Value.Set(viper.GetString(f.Name))
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
}

// Execute runs the root command.
func Execute(version string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("kfix %s\n", version))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads ~/.kfix/config.yaml, tolerating a missing file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// requireAPIKey resolves the API key or fails with setup instructions.
func requireAPIKey(cfg *config.Config) (string, error) {
	if key := cfg.ResolveAPIKey(); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key configured; set ANTHROPIC_API_KEY or run: kfix config set api-key YOUR_API_KEY")
}
