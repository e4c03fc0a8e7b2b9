package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mwhite-dev/threadflow/graph"
	"github.com/mwhite-dev/threadflow/graph/emit"
	"github.com/mwhite-dev/threadflow/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triage HTTP server",
	Long:  `Starts the HTTP server exposing the triage workflow: POST /chat to run or resume turns, GET /threads/{id}/history for checkpoint history, plus /healthz and /metrics.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()

		st, cleanup, err := buildStore(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		registry := prometheus.NewRegistry()
		engine, err := buildEngine(cfg, st,
			graph.WithMetrics(graph.NewMetrics(registry)),
			graph.WithEmitter(emit.NewLogEmitter(os.Stdout, true)),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: server.New(engine, logger, registry).Router(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening",
				zap.String("addr", cfg.Server.Addr),
				zap.String("store", cfg.Store.Backend))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return err
		case sig := <-shutdown:
			logger.Info("shutting down", zap.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", zap.Error(err))
				return srv.Close()
			}
			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
