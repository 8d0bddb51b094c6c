package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
)

const shutdownTimeout = 30 * time.Second

// WaitForShutdown waits for a shutdown signal and gracefully stops the application.
func (app *App) WaitForShutdown(ctx context.Context, srv *http.Server, serveErr <-chan error) error {
	logger := app.Obs.Logger

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	var runErr error
	select {
	case sig := <-interrupt:
		logger.Info("Shutting down application", attr.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Application context canceled")
	case err, ok := <-serveErr:
		if ok && err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", attr.Error(err))
	}

	app.Close()
	logger.Info("Application shut down gracefully")
	return runErr
}
