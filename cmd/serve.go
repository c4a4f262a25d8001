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

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/auth"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/database"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/email"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/handler"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/payment"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/repository"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/service"
)

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(cfg.Database); err != nil {
		return err
	}
	slog.Info("connected to PostgreSQL")

	// ── 2. External services ─────────────────────────────────────────────
	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		return err
	}

	var sender email.Sender = email.LogSender{}
	if len(cfg.Brevo.APIKeys) > 0 {
		sender = email.NewClient(cfg.Brevo.BaseURL, cfg.Brevo.SenderName, cfg.Brevo.SenderEmail, cfg.Brevo.APIKeys)
	} else {
		slog.Warn("no email api keys configured, emails will only be logged")
	}
	mailer := email.NewMailer(sender)

	gateway := payment.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.BaseURL)
	if !cfg.Razorpay.Configured() {
		slog.Warn("payment gateway not configured, paid registrations use simulated payment")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	m := metrics.NewRegistry()
	regRepo := repository.NewRegistrationRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	cat, err := catalog.NewProvider(repository.NewCatalogRepository(pool), cfg.Workflow.CatalogCacheTTL)
	if err != nil {
		return err
	}

	submitter := service.NewSubmitter(regRepo, profileRepo, mailer, m, cfg.Workflow, slog.Default())
	h := handler.New(cat,
		service.NewRegistrationService(cat, submitter, gateway, cfg.Razorpay, cfg.Workflow, m, slog.Default()),
		service.NewAdminService(regRepo, cat, submitter, mailer, cfg.Admin, m, slog.Default()),
		service.NewProfileService(profileRepo, regRepo),
	)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := handler.NewRouter(h, handler.RouterConfig{
		Verifier:       verifier,
		Metrics:        m.Handler(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WebDir:         cfg.Server.WebDir,
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	// Let accepted registrations finish their background writes.
	if err := submitter.Drain(shutdownCtx); err != nil {
		slog.Error("background tasks still running at exit", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
