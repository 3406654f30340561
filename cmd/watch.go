package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kfix-sh/kfix/internal/cluster"
	"github.com/kfix-sh/kfix/internal/logging"
	"github.com/kfix-sh/kfix/internal/scan"
	"github.com/kfix-sh/kfix/internal/watch"
)

var (
	flagWatchNamespace string
	flagWatchAll       bool
	flagWatchInterval  int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously scan the cluster and report new and resolved issues",
	Long: `Repeat the health scan on a fixed interval. Each cycle reflects live
cluster state (no caching); issues that appeared since the previous cycle
are flagged NEW and resolved ones are counted. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&flagWatchNamespace, "namespace", "n", "default", "Namespace to watch")
	watchCmd.Flags().BoolVarP(&flagWatchAll, "all-namespaces", "A", false, "Watch all namespaces")
	watchCmd.Flags().IntVar(&flagWatchInterval, "interval", 30, "Seconds between scan cycles")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logging.Setup(flagLogLevel)

	if flagWatchInterval <= 0 {
		return fmt.Errorf("interval must be a positive number of seconds, got %d", flagWatchInterval)
	}
	if err := cluster.ValidateContext(flagContext); err != nil {
		return err
	}

	// Watch never caches: every cycle must reflect live state.
	runner := cluster.NewRunner(flagContext, nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if !cluster.CheckAccess(ctx, runner) {
		return clusterUnreachableErr()
	}

	scanner := scan.New(runner)
	scanFn := func(ctx context.Context) []scan.Finding {
		if flagWatchAll {
			return scanner.AllNamespaces(ctx)
		}
		return scanner.Namespace(ctx, flagWatchNamespace)
	}

	target := flagWatchNamespace
	if flagWatchAll {
		target = "all namespaces"
	}
	fmt.Printf("Watching %s every %ds (Ctrl-C to stop)\n\n", target, flagWatchInterval)

	loop := watch.NewLoop(watch.Config{
		Scan:     scanFn,
		Interval: time.Duration(flagWatchInterval) * time.Second,
		Render: func(findings []scan.Finding, added map[scan.Identity]bool, first bool) {
			fmt.Printf("── %s ──\n", time.Now().Format(time.TimeOnly))
			renderFindings(os.Stdout, findings, added)
		},
		Summary: func(newCount, resolvedCount int) {
			line := fmt.Sprintf("%d new, %d resolved", newCount, resolvedCount)
			if newCount > 0 {
				line = color.YellowString(line)
			} else if resolvedCount > 0 {
				line = color.GreenString(line)
			}
			fmt.Printf("%s\n\n", line)
		},
	})

	err := loop.Run(ctx)
	fmt.Println("\nWatch stopped.")
	return err
}
