package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	emailPkg "ellarises/internal/adapters/email"
	web "ellarises/internal/adapters/http"
	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/adapters/http/perf"
	"ellarises/internal/adapters/storage"
	donationStore "ellarises/internal/adapters/storage/donation"
	eventStore "ellarises/internal/adapters/storage/event"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	outboxStorePkg "ellarises/internal/adapters/storage/outbox"
	participantStore "ellarises/internal/adapters/storage/participant"
	registrationStore "ellarises/internal/adapters/storage/registration"
	surveyStore "ellarises/internal/adapters/storage/survey"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/application/orchestrators"
	"ellarises/internal/config"
	"ellarises/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const (
	outboxInterval = time.Minute
	sweepInterval  = 10 * time.Minute
	shutdownGrace  = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server_exit", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect := storage.Dialect(cfg.Database.Driver)
	rawDB, err := storage.Open(ctx, storage.Options{
		Dialect:     dialect,
		SQLitePath:  cfg.Database.SQLitePath,
		PostgresDSN: cfg.Database.PostgresDSN(),
	})
	if err != nil {
		return err
	}
	defer rawDB.Close()

	if err := storage.MigrateDB(ctx, rawDB, dialect); err != nil {
		return err
	}
	slog.Info("database_ready", "driver", dialect, "schema", storage.LatestSchemaVersion())

	// Performance instrumentation: timed DB and request timings share one collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	db := storage.NewTimedDB(rawDB, dialect, collector).WithSlowThreshold(cfg.SlowQueryMs)

	stores := web.Stores{
		Users:         userStore.NewSQLStore(db),
		Participants:  participantStore.NewSQLStore(db),
		Milestones:    milestoneStore.NewSQLStore(db),
		Donations:     donationStore.NewSQLStore(db),
		Events:        eventStore.NewSQLStore(db),
		Registrations: registrationStore.NewSQLStore(db),
		Surveys:       surveyStore.NewSQLStore(db),
		Outbox:        outboxStorePkg.NewSQLStore(db),
	}

	userDeps := orchestrators.UserDeps{Users: stores.Users, Participants: stores.Participants, Now: time.Now}
	switch err := orchestrators.ExecuteSeedManager(ctx, userDeps, cfg.ManagerEmail, cfg.ManagerPassword); {
	case errors.Is(err, orchestrators.ErrNoManagerConfig):
		slog.Warn("no_manager_seeded", "hint", "set MANAGER_EMAIL and MANAGER_PASSWORD to create the first manager")
	case err != nil:
		return err
	}

	var sender emailPkg.Sender
	if cfg.ResendAPIKey != "" && cfg.EmailFrom != "" {
		sender = emailPkg.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
		slog.Info("email_sender", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_sender", "provider", "noop", "hint", "RESEND_API_KEY and EMAIL_FROM are unset, email delivery is disabled")
		} else {
			slog.Info("email_sender", "provider", "noop")
		}
	}
	processor := orchestrators.NewOutboxProcessor(stores.Outbox, map[string]orchestrators.ActionExecutor{
		outbox.ActionEmail: &orchestrators.EmailExecutor{Sender: sender, ReplyTo: cfg.EmailFrom},
	}, time.Now)
	workerDone := orchestrators.StartBackgroundWorker(ctx, processor, outboxInterval)

	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, time.Minute)
	go limiter.Run(ctx)

	srv, err := web.NewServer(stores, web.Options{
		SessionSecret:      cfg.SessionSecret,
		SessionTTL:         cfg.SessionTTL,
		CSRFKey:            cfg.CSRFKey,
		SecureCookies:      cfg.SecureCookies,
		PublicBaseURL:      cfg.PublicBaseURL,
		SlowRequestMs:      cfg.SlowRequestMs,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		Limiter:            limiter,
		Collector:          collector,
		Outbox:             processor,
		DB:                 db,
	})
	if err != nil {
		return err
	}
	go sweepSessions(ctx, srv)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", httpSrv.Addr, "env", cfg.Env)
		serveErr <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	stop()
	<-workerDone
	return nil
}

// sweepSessions drops expired sessions until ctx is done.
func sweepSessions(ctx context.Context, srv *web.Server) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := srv.Sessions().Sweep(); n > 0 {
				slog.Debug("sessions_swept", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
