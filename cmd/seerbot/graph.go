package main

import (
	"context"
	"fmt"

	"github.com/bbkanego/seerbot"
	"github.com/bbkanego/seerbot/internal/cli"
	"github.com/bbkanego/seerbot/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <intent>",
	Short: "Export a conversation as a Mermaid diagram",
	Long: `Prints the state machine started by <intent> as a Mermaid flowchart (graph TD).
With --session, the states the session went through are highlighted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		intent := args[0]
		sessionID, _ := cmd.Flags().GetString("session")

		templates := seerbot.DefaultTemplates()
		var overlay *graph.Overlay
		if sessionID != "" {
			ctx := context.Background()
			app := openApp(ctx, loadConfig(cmd))
			defer app.Close()
			templates = app.Bot.Templates()

			snap, err := app.Sessions.Load(ctx, sessionID)
			if err != nil {
				_ = app.Close()
				fail(fmt.Errorf("loading session %s: %w", sessionID, err))
			}
			overlay = cli.Overlay(snap, intent)
		}

		tpl, err := templates.Template(intent)
		if err != nil {
			fail(err)
		}
		fmt.Print(graph.GenerateMermaid(tpl, overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
}
