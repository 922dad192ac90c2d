package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawlgate/internal/api"
	"github.com/JakeFAU/crawlgate/internal/id/uuid"
)

// Run executes the serve command. It blocks until deps.Ctx is cancelled and
// the server has drained.
func (c *ServeCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	if c.Port > 0 {
		cfg.Server.Port = c.Port
	}
	logger := deps.Logger

	apiServer := api.NewServer(deps.Gate, uuid.New(), cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(deps.Ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("config", cfg.Source),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			cancel()
		}
		close(errCh)
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")

	return <-errCh
}
