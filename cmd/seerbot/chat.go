package main

import (
	"context"
	"os"

	"github.com/bbkanego/seerbot/internal/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a bot in the terminal",
	Long: `Opens an interactive chat with a configured bot. Input can be piped for scripted runs.
Type /exit to leave; "quit" is sent to the bot like any other utterance.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if !cmd.Flags().Changed("log-level") && cfg.Log.File == "" {
			// Keep routine logs out of the conversation.
			cfg.Log.Level = "warn"
		}
		botID, _ := cmd.Flags().GetString("bot")
		sessionID, _ := cmd.Flags().GetString("session")
		raw, _ := cmd.Flags().GetBool("raw")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		app := openApp(ctx, cfg)
		defer app.Close()

		err := cli.Chat(ctx, app.Bot, cli.ChatOptions{
			BotID:       botID,
			SessionID:   sessionID,
			In:          os.Stdin,
			Out:         os.Stdout,
			Interactive: term.IsTerminal(int(os.Stdin.Fd())),
			Raw:         raw,
		})
		if err != nil && ctx.Signal() == nil {
			_ = app.Close()
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("bot", "", "Bot id to chat with")
	chatCmd.Flags().String("session", "", "Session id to resume (default: a new one)")
	chatCmd.Flags().Bool("raw", false, "Print the JSON payloads")
	_ = chatCmd.MarkFlagRequired("bot")
}
