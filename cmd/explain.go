package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kfix-sh/kfix/internal/ai"
	"github.com/kfix-sh/kfix/internal/logging"
)

var explainCmd = &cobra.Command{
	Use:   "explain ERROR_MESSAGE...",
	Short: "Explain a Kubernetes error message in plain English",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	logging.Setup(flagLogLevel)
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	apiKey, err := requireAPIKey(cfg)
	if err != nil {
		return err
	}

	diag := ai.NewDiagnostician(ai.NewClient(apiKey, cfg.ResolveModel()))

	stop := spinner(os.Stderr, "Asking AI...")
	text, err := diag.ExplainError(ctx, strings.Join(args, " "))
	stop()
	if err != nil {
		return err
	}

	cmd.Println(text)
	renderUsage(os.Stdout, diag.Client().LastUsage())
	return nil
}
