package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
)

// Start runs every module and serves HTTP until ctx is canceled or a
// shutdown signal arrives.
func (app *App) Start(ctx context.Context) error {
	logger := app.Obs.Logger

	runCtx, stop := context.WithCancel(ctx)
	app.stop = stop

	for _, m := range app.Modules.all() {
		app.wg.Add(1)
		go m.Run(runCtx, &app.wg)
	}

	srv := &http.Server{
		Addr:    app.Cfg.HTTP.Addr,
		Handler: app.Router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", attr.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	return app.WaitForShutdown(ctx, srv, serveErr)
}
