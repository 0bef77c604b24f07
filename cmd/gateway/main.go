// cmd/gateway/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamzrod/modbus-gateway/internal/config"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Modbus point gateway",
		Long: `Exposes named Modbus points of RTU and TCP devices through a
TEST/GET/SET request/reply API on NATS.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON logs and output")

	rootCmd.AddCommand(
		newServeCmd(),
		newCheckCmd(),
		newTestCmd(),
		newGetCmd(),
		newSetCmd(),
		newRequestCmd(),
	)
	return rootCmd
}

// loadConfig reads, normalizes and validates the configuration.
// extra holds "name=path" interface files.
func loadConfig(extra []string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	for _, arg := range extra {
		name, path, ok := cutInterfaceFlag(arg)
		if !ok {
			return nil, fmt.Errorf("--interface %q: expected name=path", arg)
		}
		if err := config.LoadInterface(cfg, name, path); err != nil {
			return nil, err
		}
	}

	// Command line overrides
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if jsonOutput {
		cfg.Logging.Format = "json"
	}

	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func cutInterfaceFlag(s string) (name, path string, ok bool) {
	name, path, ok = strings.Cut(s, "=")
	return name, path, ok && name != "" && path != ""
}
