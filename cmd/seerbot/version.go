package main

import (
	"fmt"

	"github.com/bbkanego/seerbot"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of seerbot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seerbot version %s\n", seerbot.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
