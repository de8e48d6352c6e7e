package main

import (
	"fmt"
	"os"

	"github.com/bbkanego/seerbot"
	"github.com/bbkanego/seerbot/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [fixtures]",
	Short: "Validate conversations, fixtures and bot models",
	Long: `Builds every conversation template and loads the fixture file with the model and
settings of each bot, reporting every problem found. The fixture path defaults to
the fixtures entry of the configuration.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if len(args) > 0 {
			cfg.Fixtures = args[0]
		}

		if err := cli.Validate(cmd.Context(), cfg, seerbot.DefaultTemplates(), os.Stdout); err != nil {
			fmt.Println("Validation failed.")
			os.Exit(1)
		}
		fmt.Println("All checks passed.")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
