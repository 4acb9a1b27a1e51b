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

	"github.com/Brownie44l1/image-validator/internal/handlers"
	"github.com/Brownie44l1/image-validator/internal/inference"
	"github.com/Brownie44l1/image-validator/internal/model"
	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, _ []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}
	defer model.DestroyRuntime()
	defer loader.Close()

	opts := []handlers.Option{handlers.WithMaxUpload(cfg.MaxUpload)}
	if cfg.SentryDSN != "" {
		if err := raven.SetDSN(cfg.SentryDSN); err != nil {
			return fmt.Errorf("configure sentry: %w", err)
		}
		opts = append(opts, handlers.WithReporter(func(err error, tags map[string]string) {
			raven.CaptureError(err, tags)
		}))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Preload {
		if _, err := loader.Get(ctx); err != nil {
			log.Warn("[Main] Preload failed, retrying on first request: ", err.Error())
		}
	}

	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handlers.NewHandler(inference.NewClassifier(loader), loader, opts...)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handlers.NewRouter(h),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	log.Info("[Main] Server starting on ", cfg.Addr)
	log.Info("[Main] Model path: ", loader.Path())
	log.Info("[Main] Classes: ", model.Labels)
	log.Info("[Main] Endpoints: GET /health, POST /validate-image/")

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("[Main] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
