package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bbkanego/seerbot/internal/cli"
	"github.com/bbkanego/seerbot/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "seerbot",
	Short: "SeerBot is a multi-turn dialogue engine for customer chat bots",
	Long: `SeerBot answers visitor utterances with intent matching and guided conversations.
Configuration is read from seerbot.yaml (or --config) and SEERBOT_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default ./seerbot.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

// loadConfig applies the persistent flags on top of the configuration file.
func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		fail(err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg
}

func openApp(ctx context.Context, cfg *config.Config) *cli.App {
	app, err := cli.Build(ctx, cfg)
	if err != nil {
		fail(err)
	}
	return app
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
