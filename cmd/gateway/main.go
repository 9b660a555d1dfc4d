package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/cybercaution/cybercaution/internal/api/http"
	"github.com/cybercaution/cybercaution/internal/audit"
	"github.com/cybercaution/cybercaution/internal/auth"
	"github.com/cybercaution/cybercaution/internal/config"
	"github.com/cybercaution/cybercaution/internal/db"
	"github.com/cybercaution/cybercaution/internal/session"
	"github.com/cybercaution/cybercaution/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.Env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// --- DB (remote row store) ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	remote := store.NewSQLStore(dbh)

	// --- Local mirror ---
	local, err := store.NewFSStore(cfg.SnapshotDir)
	if err != nil {
		logger.Fatal("snapshot store", zap.Error(err))
	}

	events := audit.NewEventRepo(dbh, cfg.SiteID)

	mgr := session.NewManager(remote, local,
		session.WithLogger(logger.Named("session")),
		session.WithUser(cfg.LocalUser),
		session.WithEvents(events),
		session.WithAutosaveDelay(cfg.AutosaveDelay),
		session.WithProbeInterval(cfg.ProbeInterval),
	)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.LocalUser, cfg.LocalPassHash)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// Protected API
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Get("/assessments", api.ListAssessmentsHandler())
		pr.Get("/assessments/{assessmentType}", api.GetAssessmentHandler())

		pr.Post("/sessions", api.CreateSessionHandler(mgr))
		pr.Get("/sessions/{sessionID}", api.GetSessionHandler(mgr))
		pr.Post("/sessions/{sessionID}/answers", api.RecordAnswersHandler(mgr))
		pr.Put("/sessions/{sessionID}/org", api.SetOrgHandler(mgr))
		pr.Post("/sessions/{sessionID}/advance", api.AdvanceHandler(mgr))
		pr.Post("/sessions/{sessionID}/retreat", api.RetreatHandler(mgr))
		pr.Get("/sessions/{sessionID}/report", api.GetReportHandler(mgr))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := remote.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	mgr.Close(shutdownCtx)
	logger.Info("shut down")
}
