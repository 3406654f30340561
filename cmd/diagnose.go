package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/kfix-sh/kfix/internal/ai"
	"github.com/kfix-sh/kfix/internal/cluster"
	"github.com/kfix-sh/kfix/internal/fix"
	"github.com/kfix-sh/kfix/internal/logging"
)

var (
	flagDiagNamespace string
	flagDiagStream    bool
	flagAutoFix       bool
	flagAutoFixPolicy string
	flagYes           bool
	flagDryRun        bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Diagnose a Kubernetes resource with AI",
}

var diagnosePodCmd = &cobra.Command{
	Use:   "pod NAME",
	Short: "Diagnose a pod issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, "pod", args[0])
	},
}

var diagnoseNodeCmd = &cobra.Command{
	Use:   "node NAME",
	Short: "Diagnose a node issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, "node", args[0])
	},
}

var diagnoseDeploymentCmd = &cobra.Command{
	Use:   "deployment NAME",
	Short: "Diagnose a deployment issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, "deployment", args[0])
	},
}

var diagnoseServiceCmd = &cobra.Command{
	Use:   "service NAME",
	Short: "Diagnose a service issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, "service", args[0])
	},
}

func init() {
	diagnoseCmd.PersistentFlags().StringVarP(&flagDiagNamespace, "namespace", "n", "default", "Kubernetes namespace")
	diagnoseCmd.PersistentFlags().BoolVar(&flagDiagStream, "stream", false, "Stream the diagnosis as it is generated")
	diagnoseCmd.PersistentFlags().BoolVar(&flagAutoFix, "auto-fix", false, "Extract and offer to run suggested kubectl commands")
	diagnoseCmd.PersistentFlags().StringVar(&flagAutoFixPolicy, "auto-fix-policy", "review", "Auto-fix policy: off, review, safe")
	diagnoseCmd.PersistentFlags().BoolVar(&flagYes, "yes", false, "Skip confirmation prompts (the safe policy filter still applies)")
	diagnoseCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "Show candidate commands without prompting or executing")

	diagnoseCmd.AddCommand(diagnosePodCmd)
	diagnoseCmd.AddCommand(diagnoseNodeCmd)
	diagnoseCmd.AddCommand(diagnoseDeploymentCmd)
	diagnoseCmd.AddCommand(diagnoseServiceCmd)
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, kind, name string) error {
	logging.Setup(flagLogLevel)
	ctx := cmd.Context()

	// An invalid policy is a configuration error: fail before any
	// cluster or AI call, whether or not --auto-fix was given.
	policy, err := fix.ParsePolicy(flagAutoFixPolicy)
	if err != nil {
		return err
	}

	if err := cluster.ValidateContext(flagContext); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	apiKey, err := requireAPIKey(cfg)
	if err != nil {
		return err
	}

	runner := cluster.NewRunner(flagContext, cluster.NewCache(cfg.ResolveCacheTTL()))
	if !cluster.CheckAccess(ctx, runner) {
		return clusterUnreachableErr()
	}

	diag := ai.NewDiagnostician(ai.NewClient(apiKey, cfg.ResolveModel()))

	text, err := diagnoseResource(ctx, diag, runner, kind, name)
	if err != nil {
		return err
	}
	renderUsage(os.Stdout, diag.Client().LastUsage())

	if !flagAutoFix {
		return nil
	}

	commands := fix.ExtractCommands(text)
	session := fix.NewSession(policy, flagYes, flagDryRun, promptConfirm, fix.NewExecutor(), os.Stdout)
	_, err = session.Run(ctx, commands)
	return err
}

// diagnoseResource gathers diagnostics and produces the diagnosis text,
// streaming it to stdout when --stream is set. The streamed chunks and
// the returned text come from the same response.
func diagnoseResource(ctx context.Context, diag *ai.Diagnostician, runner cluster.Runner, kind, name string) (string, error) {
	stop := spinner(os.Stderr, fmt.Sprintf("Gathering diagnostics for %s %q...", kind, name))

	var (
		text   string
		stream *ai.Stream
		err    error
	)
	switch kind {
	case "pod":
		var d cluster.PodDiagnostics
		if d, err = cluster.GatherPodDiagnostics(ctx, runner, name, flagDiagNamespace); err == nil {
			stop = nextPhase(stop)
			if flagDiagStream {
				stream, err = diag.DiagnosePodStream(ctx, name, d)
			} else {
				text, err = diag.DiagnosePod(ctx, name, d)
			}
		}
	case "node":
		var d cluster.NodeDiagnostics
		if d, err = cluster.GatherNodeDiagnostics(ctx, runner, name); err == nil {
			stop = nextPhase(stop)
			if flagDiagStream {
				stream, err = diag.DiagnoseNodeStream(ctx, name, d)
			} else {
				text, err = diag.DiagnoseNode(ctx, name, d)
			}
		}
	case "deployment":
		var d cluster.DeploymentDiagnostics
		if d, err = cluster.GatherDeploymentDiagnostics(ctx, runner, name, flagDiagNamespace); err == nil {
			stop = nextPhase(stop)
			if flagDiagStream {
				stream, err = diag.DiagnoseDeploymentStream(ctx, name, d)
			} else {
				text, err = diag.DiagnoseDeployment(ctx, name, d)
			}
		}
	case "service":
		var d cluster.ServiceDiagnostics
		if d, err = cluster.GatherServiceDiagnostics(ctx, runner, name, flagDiagNamespace); err == nil {
			stop = nextPhase(stop)
			if flagDiagStream {
				stream, err = diag.DiagnoseServiceStream(ctx, name, d)
			} else {
				text, err = diag.DiagnoseService(ctx, name, d)
			}
		}
	default:
		stop()
		return "", fmt.Errorf("unsupported resource kind %q", kind)
	}
	stop()
	if err != nil {
		return "", err
	}

	if stream != nil {
		defer stream.Close()
		for {
			chunk, ok := stream.Next()
			if !ok {
				break
			}
			fmt.Print(chunk)
		}
		fmt.Println()
		if serr := stream.Err(); serr != nil {
			return "", serr
		}
		return stream.Text(), nil
	}

	fmt.Println(text)
	return text, nil
}

// nextPhase swaps the gathering spinner for the analysis spinner.
func nextPhase(stop func()) func() {
	stop()
	return spinner(os.Stderr, "Analyzing with AI...")
}

// promptConfirm asks a yes/no question on the terminal. Declining is a
// normal answer, not an error.
func promptConfirm(question string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
