package main

import (
	"context"
	"errors"
	"net/http"

	seerhttp "github.com/bbkanego/seerbot/internal/adapters/http"
	"github.com/bbkanego/seerbot/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP API",
	Long: `Starts the bot behind the JSON chat API, with admin routes when http.admin_token
is set and Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		app := openApp(ctx, cfg)
		defer app.Close()
		log := app.Logger

		if cfg.HTTP.AdminToken == "" {
			log.Warn("http.admin_token is empty; admin routes are disabled")
		}

		api := seerhttp.NewServer(app.Bot,
			seerhttp.WithLogger(log),
			seerhttp.WithAdminToken(cfg.HTTP.AdminToken),
			seerhttp.WithCORSOrigins(cfg.HTTP.CORSOrigins...),
			seerhttp.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
			seerhttp.WithSecureCookies(cfg.HTTP.SecureCookies),
			seerhttp.WithMetrics(app.Registry),
			seerhttp.WithFeed(app.Feed),
		)
		srv := api.HTTPServer(cfg.HTTP.Addr)

		if cfg.Cache.JanitorInterval > 0 {
			go app.Bot.RunJanitor(ctx, cfg.Cache.JanitorInterval)
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Info("Starting SeerBot server", "addr", srv.Addr, "storage", cfg.Storage.Driver, "sessions", cfg.Session.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				log.Error("Server error", "err", err)
				_ = app.Close()
				fail(err)
			}
		case <-ctx.Done():
			log.Info("Shutting down", "signal", ctx.Signal())

			shutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdown); err != nil {
				log.Error("Graceful shutdown did not complete", "timeout", cfg.HTTP.ShutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					log.Error("Error killing server", "err", err)
				}
			}
			log.Info("SeerBot server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, overrides http.addr")
}
