package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/capture"
	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port      int
		noCapture bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with session control and live events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = a.cfg.Port
			}
			return a.serve(cmd.Context(), port, !noCapture)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default PORT)")
	cmd.Flags().BoolVar(&noCapture, "no-capture", false, "serve attendance and students only, without session endpoints")

	return cmd
}

func (a *app) serve(ctx context.Context, port int, withCapture bool) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := ws.NewHub(a.logger)
	go hub.Run(ctx)

	deps := &api.Dependencies{
		Ledger:      st.ledger,
		Students:    gallery.Students{Dir: a.cfg.GalleryDir},
		Hub:         hub,
		ExportName:  a.cfg.ExportFile,
		Readiness:   map[string]handler.ReadinessCheck{"ledger": ledgerReady(st.ledger)},
		RateLimiter: middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		Audit:       audit.NewSlogLogger(a.logger),
	}
	if st.repo != nil {
		deps.Readiness["database"] = func(ctx context.Context) error {
			return database.HealthCheck(ctx, st.repo)
		}
	}

	if withCapture {
		p, err := a.provider()
		if err != nil {
			return err
		}
		ctrl := a.newController(p, st.ledger, a.cameraConfig("", ""), capture.HubSink{Hub: hub}, a.eventSinks(ctx, hub))
		deps.Session = ctrl
		defer func() {
			if ctrl.Stop() == nil {
				_ = ctrl.Wait()
			}
		}()
	}

	router := api.NewRouter(a.logger, deps)
	router.Setup(ctx)

	a.logger.Info("starting Chamada API",
		slog.String("environment", a.cfg.Environment),
		slog.Int("port", port),
		slog.Bool("capture", withCapture),
	)

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", port)
		a.logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	a.logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		a.logger.Error("shutdown error", slog.Any("error", err))
	}
	a.logger.Info("server stopped")

	return nil
}

// ledgerReady fails when the attendance file has gone missing under the server
func ledgerReady(l *ledger.Ledger) handler.ReadinessCheck {
	return func(context.Context) error {
		if _, err := os.Stat(l.Path()); err != nil {
			return fmt.Errorf("attendance file: %w", err)
		}
		return nil
	}
}
