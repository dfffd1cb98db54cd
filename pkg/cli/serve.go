package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/audit"
	"github.com/ekaya-inc/ekaya-migrate/pkg/auth"
	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/handlers"
	"github.com/ekaya-inc/ekaya-migrate/pkg/mcp"
	"github.com/ekaya-inc/ekaya-migrate/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-migrate/pkg/middleware"
	"github.com/ekaya-inc/ekaya-migrate/pkg/tracker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the wizard HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("suggestions_provider", cfg.Suggestions.Provider),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.Bool("auth_required", cfg.Auth.RequireAuth))

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		return err
	}

	tr, err := tracker.New(ctx, store, providers, tracker.Options{
		AllowUngatedNavigation: cfg.Tracker.AllowUngatedNavigation,
		InitialState:           tracker.PolicyFromConfig(cfg.Tracker),
		Auditor:                audit.NewSecurityAuditor(logger),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           newHTTPHandler(cfg, tr, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-migrate",
			zap.String("addr", srv.Addr),
			zap.String("phase", string(tr.CurrentPhase())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// newHTTPHandler wires every route and the middleware stack around them.
func newHTTPHandler(cfg *config.Config, tr *tracker.Tracker, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	authMiddleware := auth.NewMiddleware(cfg.Auth, tr, logger)

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewWizardHandler(tr, logger).RegisterRoutes(mux, authMiddleware, cfg.Auth.RequireAuth)
	handlers.NewExportHandler(tr, logger).RegisterRoutes(mux)

	mcpServer := mcp.NewServer("ekaya-migrate", cfg.Version, logger)
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, tr)
	tools.RegisterWizardTools(mcpServer.MCP(), &tools.WizardToolDeps{
		Tracker: tr,
		Logger:  logger.Named("mcp-tools"),
	})
	handlers.NewMCPHandler(mcpServer, logger.Named("mcp-http")).RegisterRoutes(mux, authMiddleware, cfg.Auth.RequireAuth)

	var handler http.Handler = authMiddleware.Authenticate(mux)
	handler = middleware.RequestLogger(logger.Named("http"))(handler)
	return middleware.Recoverer(logger)(handler)
}
