package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kfix-sh/kfix/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kfix configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value (api-key, model, cache-ttl)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Printf("Set %s in %s\n", args[0], path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path, err := config.Path()
		if err != nil {
			return err
		}

		fmt.Printf("Config file: %s\n\n", path)
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "api-key\t%s\n", maskKey(cfg.APIKey))
		fmt.Fprintf(tw, "model\t%s\n", cfg.ResolveModel())
		fmt.Fprintf(tw, "cache-ttl\t%s\n", cfg.ResolveCacheTTL())
		tw.Flush()

		if os.Getenv("ANTHROPIC_API_KEY") != "" {
			fmt.Println(color.YellowString("\nANTHROPIC_API_KEY is set and overrides the configured api-key."))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// maskKey hides all but the tail of a credential.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
