package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	astrocloud "github.com/jbcurtin/astro-cloud"
	"github.com/jbcurtin/astro-cloud/config"
	"github.com/jbcurtin/astro-cloud/credentials"
	"github.com/jbcurtin/astro-cloud/filesystem"
	achttp "github.com/jbcurtin/astro-cloud/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a directory of FITS files with range support",
	Long: `Serve the files under server.root over GET and HEAD with Range support.

With --access private every request must carry an AWS Signature V4
Authorization header signed with a key from server.keys.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().String("root", "", "directory to serve (default: ./data)")
	serveCmd.Flags().String("access", "", "access mode: public, private (default: public)")
	serveCmd.Flags().String("keys-file", "", "JSON file of access_key/secret_key pairs")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(cfg.Server.Root, 0o750); err != nil {
		return fmt.Errorf("create root directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Server.Root)
	if err != nil {
		return fmt.Errorf("open root: %w", err)
	}
	defer func() { _ = root.Close() }()

	storage := filesystem.NewFileStorage(root)

	var verifier achttp.RequestVerifier
	if cfg.Server.Access == "private" {
		store, err := credentials.NewStore(cfg.Server.Keys)
		if err != nil {
			return fmt.Errorf("load access keys: %w", err)
		}
		if store.Len() == 0 {
			slog.Warn("private access without keys; every request will be rejected")
		}
		verifier = astrocloud.NewSignatureVerifier(cfg.Server.Region, cfg.Server.Service, store)
	}

	handler := achttp.NewHandler(&achttp.HandlerConfig{
		Verifier: verifier,
		CORS:     cfg.Server.CORS,
	}, storage)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "root", cfg.Server.Root, "access", cfg.Server.Access)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
