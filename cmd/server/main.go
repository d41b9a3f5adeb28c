package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	emailPkg "labconsole/internal/adapters/email"
	web "labconsole/internal/adapters/http"
	"labconsole/internal/adapters/http/perf"
	"labconsole/internal/adapters/remote"
	"labconsole/internal/adapters/storage"
	auditStore "labconsole/internal/adapters/storage/audit"
	"labconsole/internal/config"
	auditDomain "labconsole/internal/domain/audit"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Production() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	// Audit database with WAL mode and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	auditKey := cfg.AuditKey
	if auditKey == nil {
		auditKey = make([]byte, 32)
		if _, err := rand.Read(auditKey); err != nil {
			log.Fatalf("failed to generate audit key: %v", err)
		}
		slog.Warn("audit_key_generated", "detail", "fingerprints won't match across restarts; set LABCONSOLE_AUDIT_KEY")
	}
	fingerprints, err := auditDomain.NewFingerprinter(auditKey)
	if err != nil {
		log.Fatalf("invalid audit key: %v", err)
	}

	httpClient := remote.NewTimedHTTPClient(&http.Client{Timeout: cfg.APITimeout}, collector).
		WithThreshold(cfg.SlowRemoteMs)
	client := remote.NewClient(cfg.APIBaseURL, httpClient)

	var notifier emailPkg.Sender
	if cfg.ResendKey != "" {
		notifier = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		notifier = emailPkg.NewNoopSender()
		if cfg.NotifyEmail != "" {
			slog.Warn("email_delivery_disabled", "detail", "LABCONSOLE_NOTIFY_EMAIL is set without LABCONSOLE_RESEND_KEY")
		}
	}

	mux := web.NewMux(&web.Deps{
		Lookup:       client,
		Lister:       client,
		Creator:      client,
		Fingerprints: fingerprints,
		AuditStore:   auditStore.NewSQLiteStore(timedDB),
		Notifier:     notifier,
		NotifyTo:     cfg.NotifyEmail,
		Welcome:      cfg.Welcome,
	}, collector, web.Options{
		CSRFKey:            cfg.CSRFKey,
		Secure:             cfg.Production(),
		TrustedOrigins:     cfg.TrustedOrigins,
		SlowRequestMs:      cfg.SlowRequestMs,
		RateLimitPerSecond: cfg.RateLimitPerSec,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepStop := make(chan struct{})
	web.StartSessionSweeper(5*time.Minute, sweepStop)
	defer close(sweepStop)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * cfg.APITimeout,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown_failed", "error", err.Error())
		}
	}()

	slog.Info("server_starting",
		"version", version,
		"addr", cfg.Addr,
		"env", cfg.Env,
		"api", cfg.APIBaseURL,
		"schema", storage.LatestSchemaVersion(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
	slog.Info("server_stopped")
}
