package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	handler "github.com/AbhigyanVE/ScrumMaster/internal/transport/http"
	"github.com/AbhigyanVE/ScrumMaster/internal/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		logger.Info("starting scrummaster",
			zap.Int("http_port", cfg.HTTPPort),
			zap.String("database", cfg.DatabaseURL),
			zap.String("context_backend", cfg.ContextBackend),
			zap.Bool("mock", cfg.MockMode()))

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		stopWatch, err := a.Watch(ctx)
		if err != nil {
			return err
		}
		defer stopWatch()

		hub := ws.NewHub(logger.Named("ws"))
		hubDone := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(hubDone)
		}()
		wsServer := ws.NewServer(ws.Settings{
			PingInterval:   cfg.WSPingInterval,
			WriteTimeout:   cfg.WSWriteTimeout,
			ReadTimeout:    cfg.WSReadTimeout,
			MaxMessageSize: cfg.WSMaxMessageSize,
		}, hub, a.Service, logger.Named("ws"))

		server := handler.NewServer(a.Service, wsServer, logger.Named("http"))

		errCh := make(chan error, 1)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.HTTPPort)
			if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
		logger.Info("API started", zap.Int("port", cfg.HTTPPort))

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		}

		logger.Info("shutting down scrummaster")

		// Graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shutdown server gracefully", zap.Error(err))
		}
		wsServer.Close()
		cancel()
		<-hubDone

		logger.Info("scrummaster stopped")
		return nil
	},
}
