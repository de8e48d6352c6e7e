package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted chat sessions",
	Long:  `List, inspect, and remove the chat sessions held by the configured session store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg := loadConfig(cmd)
		app := openApp(ctx, cfg)
		defer app.Close()

		if app.Lister == nil {
			_ = app.Close()
			fail(fmt.Errorf("the %q session store cannot list sessions", cfg.Session.Driver))
		}
		ids, err := app.Lister.List(ctx)
		if err != nil {
			_ = app.Close()
			fail(fmt.Errorf("listing sessions: %w", err))
		}

		if len(ids) == 0 {
			fmt.Println("No stored sessions found.")
			return
		}
		fmt.Println("Sessions:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a stored session as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, loadConfig(cmd))
		defer app.Close()

		snap, err := app.Sessions.Load(ctx, args[0])
		if err != nil {
			_ = app.Close()
			fail(fmt.Errorf("loading session %q: %w", args[0], err))
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			_ = app.Close()
			fail(err)
		}
		fmt.Println(string(data))
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, loadConfig(cmd))
		defer app.Close()

		failed := false
		for _, id := range args {
			if err := app.Sessions.Delete(ctx, id); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing %q: %v\n", id, err)
				failed = true
				continue
			}
			fmt.Printf("Removed session %q\n", id)
		}
		if failed {
			_ = app.Close()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
}
