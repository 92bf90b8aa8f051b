package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/opentelekomcloud-infra/giji/docs"
	"github.com/opentelekomcloud-infra/giji/internal/http/handler"
	"github.com/opentelekomcloud-infra/giji/internal/http/middleware"
	"github.com/opentelekomcloud-infra/giji/internal/otel"
	"github.com/opentelekomcloud-infra/giji/internal/repository/postgres"
	"github.com/opentelekomcloud-infra/giji/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server over the recorded import history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	archive, err := newArchive(ctx)
	if err != nil {
		return err
	}
	var snapshots handler.SnapshotPresigner
	if archive != nil {
		snapshots = archive
	}

	shutdownTracing, err := otel.Init(ctx, logLocation())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	// The import counters share the registry so in-process runs show up
	// on /metrics alongside the HTTP metrics.
	if _, err := service.NewMetrics(reg); err != nil {
		return err
	}
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler(),
	})
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(promMW.Handler())
	app.Use(otelfiber.Middleware())

	handler.RegisterRoutes(app, db, postgres.NewImportPostgres(db), snapshots, reg)

	// Swagger UI with dynamic host and scheme.
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()
	logger.Info("ops server listening", "addr", addr)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err = <-errCh:
	case <-sigCtx.Done():
		logger.Info("shutting down")
		err = app.ShutdownWithTimeout(10 * time.Second)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if terr := shutdownTracing(flushCtx); terr != nil {
		logger.Warn("tracing shutdown", "error", terr)
	}
	return err
}
