package cmd

import (
	"fmt"

	"github.com/rustyeddy/tradejournal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradejournal",
	Short: "A personal trade journal driven by short chat commands",
	Long: `Tradejournal records the entry and exit prices of manually executed
trades, keeps a running balance, and reports daily, weekly and
quality-bucketed statistics.

It provides:
  - exec / console  run journal commands (open, close, settp, stats ...)
  - serve           expose the same commands over a JSON HTTP API
  - journal         inspect and export the ledger
  - config          generate or validate configuration files`,
	SilenceUsage: true,
}

var (
	cfgFile string
	envFile string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file with TRADEJOURNAL_* overrides (default: ./.env if present)")
}

// loadConfig reads --config (or the defaults) and applies --env on top.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
