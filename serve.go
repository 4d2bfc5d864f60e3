package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpx "github.com/etkin-ai/webchat/internal/transport/http"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx := context.Background()
		assistant, closeStore, err := cfg.buildAssistant(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		srv := &http.Server{
			Addr: cfg.Server.Addr,
			Handler: httpx.NewHandler(assistant, httpx.Options{
				AppName:        cfg.AppName,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logx.Info().Str("addr", srv.Addr).Str("environment", cfg.env().String()).Msg("Starting WebChat server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case sig := <-shutdown:
			logx.Info().Str("signal", sig.String()).Msg("Start shutdown")

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logx.Warn().Err(err).Dur("timeout", shutdownTimeout).Msg("Graceful shutdown did not complete")
				if err := srv.Close(); err != nil {
					logx.Error().Err(err).Msg("Error killing server")
				}
			}
			logx.Info().Msg("WebChat server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides SERVER_ADDR)")
}
