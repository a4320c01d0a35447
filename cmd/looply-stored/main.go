package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celerix-dev/looply/internal/api"
	"github.com/celerix-dev/looply/internal/config"
	"github.com/celerix-dev/looply/internal/engine"
	"github.com/celerix-dev/looply/internal/logging"
	"github.com/celerix-dev/looply/internal/server"
	"github.com/celerix-dev/looply/internal/vault"
	"github.com/celerix-dev/looply/pkg/tracker"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:   "looply-stored",
		Short: "Serve looply profiles over TCP and HTTP",
		Long: `looply-stored keeps every profile in memory, persists each one to a JSON
file in the data directory and serves them to looply clients over a TCP line
protocol (TLS unless disabled) and to browsers over an HTTP JSON API.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return run(cfg, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default $LOOPLY_CONFIG)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	log.Info("starting looply store daemon", zap.String("data_dir", cfg.DataDir))

	persister, err := engine.NewPersistence(cfg.DataDir, cfg.Key(), log)
	if err != nil {
		return fmt.Errorf("initialize persistence: %w", err)
	}
	initial, err := persister.LoadAll()
	if err != nil {
		log.Warn("could not load existing data", zap.Error(err))
	}
	store := engine.NewMemStore(initial, persister, engine.WithLogger(log))
	log.Info("engine started",
		zap.Int("profiles", len(initial)),
		zap.Bool("encrypted", cfg.Key() != nil),
	)

	router := server.NewRouter(store, log)
	if cfg.DisableTLS {
		log.Warn("TLS disabled for the TCP protocol")
	} else {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			return fmt.Errorf("generate TLS certificate: %w", err)
		}
		router.SetCertificate(cert)
	}

	svc := tracker.New(store,
		tracker.WithFreeHabitLimit(cfg.FreeHabitLimit),
		tracker.WithLogger(log),
	)
	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(api.NewHandler(store, svc, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP API listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := router.Listen(cfg.TCPPort); err != nil {
			errCh <- fmt.Errorf("tcp server: %w", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, finalizing disk writes")
	case runErr = <-errCh:
		log.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := router.Stop(); err != nil {
		log.Warn("tcp shutdown", zap.Error(err))
	}
	store.Wait()
	log.Info("persistence complete, exiting")
	return runErr
}
