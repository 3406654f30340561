package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kfix-sh/kfix/internal/ai"
	"github.com/kfix-sh/kfix/internal/cluster"
	"github.com/kfix-sh/kfix/internal/logging"
	"github.com/kfix-sh/kfix/internal/scan"
)

var (
	flagScanNamespace string
	flagScanAll       bool
	flagScanDiagnose  bool
	flagScanNoCache   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the cluster for unhealthy resources",
	Long: `Scan pods, deployments, services and nodes for common failure states.
With --diagnose, each finding is sent to the AI for a diagnosis; a failed
diagnosis is reported for that resource and the scan continues.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&flagScanNamespace, "namespace", "n", "default", "Namespace to scan")
	scanCmd.Flags().BoolVarP(&flagScanAll, "all-namespaces", "A", false, "Scan all namespaces")
	scanCmd.Flags().BoolVar(&flagScanDiagnose, "diagnose", false, "Request an AI diagnosis for each finding")
	scanCmd.Flags().BoolVar(&flagScanNoCache, "no-cache", false, "Bypass the kubectl result cache")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	logging.Setup(flagLogLevel)
	ctx := cmd.Context()

	if err := cluster.ValidateContext(flagContext); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var cache *cluster.Cache
	if !flagScanNoCache {
		cache = cluster.NewCache(cfg.ResolveCacheTTL())
	}
	runner := cluster.NewRunner(flagContext, cache)

	if !cluster.CheckAccess(ctx, runner) {
		return clusterUnreachableErr()
	}

	scanner := scan.New(runner)
	var findings []scan.Finding
	if flagScanAll {
		findings = scanner.AllNamespaces(ctx)
	} else {
		findings = scanner.Namespace(ctx, flagScanNamespace)
	}

	renderFindings(os.Stdout, findings, nil)

	if !flagScanDiagnose || len(findings) == 0 {
		return nil
	}

	apiKey, err := requireAPIKey(cfg)
	if err != nil {
		return err
	}
	diag := ai.NewDiagnostician(ai.NewClient(apiKey, cfg.ResolveModel()))
	diagnoseFindings(ctx, diag, runner, findings)
	return nil
}

// diagnoseFindings asks the AI about each finding in turn. A failed
// diagnosis becomes an error entry for that resource, never a failure of
// the whole scan.
func diagnoseFindings(ctx context.Context, diag *ai.Diagnostician, runner cluster.Runner, findings []scan.Finding) {
	for _, f := range findings {
		fmt.Printf("\n%s\n", color.CyanString("── %s %s (%s) ──", f.Kind, f.Name, f.Reason))

		text, err := diagnoseFinding(ctx, diag, runner, f)
		if err != nil {
			fmt.Printf("%s\n", color.RedString("diagnosis failed: %v", err))
			continue
		}
		fmt.Println(text)
	}
}

// diagnoseFinding gathers the right diagnostics record for the finding's
// kind and requests a diagnosis.
func diagnoseFinding(ctx context.Context, diag *ai.Diagnostician, runner cluster.Runner, f scan.Finding) (string, error) {
	switch f.Kind {
	case scan.KindPod:
		d, err := cluster.GatherPodDiagnostics(ctx, runner, f.Name, f.Namespace)
		if err != nil {
			return "", err
		}
		return diag.DiagnosePod(ctx, f.Name, d)
	case scan.KindDeployment:
		d, err := cluster.GatherDeploymentDiagnostics(ctx, runner, f.Name, f.Namespace)
		if err != nil {
			return "", err
		}
		return diag.DiagnoseDeployment(ctx, f.Name, d)
	case scan.KindService:
		d, err := cluster.GatherServiceDiagnostics(ctx, runner, f.Name, f.Namespace)
		if err != nil {
			return "", err
		}
		return diag.DiagnoseService(ctx, f.Name, d)
	case scan.KindNode:
		d, err := cluster.GatherNodeDiagnostics(ctx, runner, f.Name)
		if err != nil {
			return "", err
		}
		return diag.DiagnoseNode(ctx, f.Name, d)
	}
	return "", fmt.Errorf("unsupported resource kind %q", f.Kind)
}

func clusterUnreachableErr() error {
	return fmt.Errorf("cannot access Kubernetes cluster; make sure kubectl is installed, your kubeconfig is valid, and the cluster is running")
}
