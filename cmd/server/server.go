package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rahul4469/resume-optimizer/internal/config"
	"github.com/rahul4469/resume-optimizer/internal/controllers"
	"github.com/rahul4469/resume-optimizer/internal/metrics"
	"github.com/rahul4469/resume-optimizer/internal/middleware"
	"github.com/rahul4469/resume-optimizer/internal/models"
	"github.com/rahul4469/resume-optimizer/internal/services"
	"github.com/rahul4469/resume-optimizer/internal/views"
	"github.com/rahul4469/resume-optimizer/templates"
	"go.uber.org/zap"
)

const sessionSweepInterval = 5 * time.Minute

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	r, sessionService, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go sweepSessions(ctx, sessionService, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("env", cfg.Server.Environment),
			zap.String("analysis_service", cfg.Analysis.BaseURL),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newApp wires services, templates and controllers into the HTTP router.
func newApp(cfg *config.Config, log *zap.Logger) (chi.Router, *models.SessionService, error) {
	// Setup Services ---------------
	sessionService := models.NewSessionService(cfg.Security.SessionIdleTimeout)
	sessionService.MaxSessions = cfg.Security.MaxSessions

	analysisClient, err := services.NewAnalysisClient(cfg.Analysis.BaseURL, cfg.Analysis.Timeout)
	if err != nil {
		return nil, nil, err
	}
	analysisClient.MaxDownloadBytes = cfg.Limits.MaxDownloadBytes

	parser := services.NewResumeParser()
	optimizer := services.NewOptimizer(analysisClient, parser, log.Named("optimizer"), services.OptimizerConfig{
		ResumeID:       cfg.Analysis.ResumeID,
		JobID:          cfg.Analysis.JobID,
		IncludeContent: cfg.Analysis.IncludeContent,
	})
	if !cfg.Analysis.IncludeContent {
		log.Warn("analyze requests send placeholder identifiers only",
			zap.Int("resume_id", cfg.Analysis.ResumeID),
			zap.Int("job_id", cfg.Analysis.JobID),
		)
	}

	// Setup Controllers ---------------
	tpl, err := views.ParseFS(templates.FS, "pages/optimizer.gohtml")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	tpl.WithLogger(log.Named("views"))

	optimizerCtrl := controllers.NewOptimizerController(
		optimizer,
		parser,
		tpl,
		log.Named("controllers"),
		cfg.Limits.MaxUploadBytes,
		cfg.IsDevelopment(),
	)
	smw := middleware.NewSessionMiddleware(sessionService, cfg.Security.SessionCookieName, cfg.Security.SecureCookies, log.Named("session"))

	return newRouter(cfg, log, smw, optimizerCtrl), sessionService, nil
}

func newRouter(cfg *config.Config, log *zap.Logger, smw *middleware.SessionMiddleware, optimizerCtrl *controllers.OptimizerController) chi.Router {
	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFKey),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.TrustedOrigins(cfg.Security.TrustedOrigins),
		csrf.ErrorHandler(controllers.CSRFFailure(log.Named("csrf"))),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(chimw.Recoverer)

	// ---- Operational Routes ----
	r.Get("/healthz", controllers.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// ---- Form Routes ----
	r.Group(func(r chi.Router) {
		// csrf parses the form, so the body limit has to come first
		r.Use(chimw.RequestSize(cfg.Limits.MaxUploadBytes))
		if !cfg.Security.SecureCookies {
			r.Use(middleware.PlaintextCSRF)
		}
		r.Use(csrfMw)
		r.Use(smw.SetSession)

		r.Get("/", optimizerCtrl.GetHome)
		r.Post("/analyze", optimizerCtrl.PostAnalyze)
		r.Post("/download/{format}", optimizerCtrl.PostDownload)
		r.Post("/reset", optimizerCtrl.PostReset)
	})

	return r
}

func sweepSessions(ctx context.Context, sessionService *models.SessionService, log *zap.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessionService.Sweep(); n > 0 {
				log.Debug("expired sessions removed", zap.Int("count", n))
			}
			metrics.ActiveSessions.Set(float64(sessionService.Len()))
		}
	}
}
