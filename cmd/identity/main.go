package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verture/identity-core/pkg/account"
	accountapi "github.com/verture/identity-core/pkg/account/api"
	"github.com/verture/identity-core/pkg/audit"
	"github.com/verture/identity-core/pkg/config"
	"github.com/verture/identity-core/pkg/credential"
	"github.com/verture/identity-core/pkg/identity"
	"github.com/verture/identity-core/pkg/notification"
	"github.com/verture/identity-core/pkg/session"
	"github.com/verture/identity-core/pkg/verification"
)

const auditBufferSize = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo identity.Repository
	var recorder audit.Recorder
	var auditLog account.AuditLog

	if cfg.Database.InMemory {
		slog.Info("Using in-memory storage")
		inmemRepo := identity.NewInMemoryRepository()
		inmemRecorder := audit.NewInMemoryRecorder()
		repo, recorder, auditLog = inmemRepo, inmemRecorder, inmemRecorder
	} else {
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			slog.Error("Failed creating dbpool", "db", cfg.Database.Database, "host", cfg.Database.Host, "err", err)
			os.Exit(-1)
		}
		defer pool.Close()

		pgRepo := identity.NewPostgresRepository(pool)
		pgRecorder := audit.NewPostgresRecorder(pool)
		repo, recorder, auditLog = pgRepo, pgRecorder, pgRecorder
	}

	dispatcher := audit.NewDispatcher(recorder, auditBufferSize)
	defer dispatcher.Close()

	credentialService := credential.NewService(repo,
		credential.NewBcryptHasher(cfg.Security.BcryptCost),
		credential.WithLockoutThreshold(cfg.Security.LockoutThreshold),
		credential.WithPolicy(credential.PasswordPolicy{
			MinLength:        cfg.Security.PasswordMinLength,
			RequireUppercase: cfg.Security.PasswordRequireUppercase,
			RequireLowercase: cfg.Security.PasswordRequireLowercase,
			RequireDigit:     cfg.Security.PasswordRequireDigit,
		}),
	)

	verificationService := verification.NewService(repo,
		verification.WithEmailTokenTTL(cfg.Security.EmailTokenExpiry),
		verification.WithPhoneCodeTTL(cfg.Security.PhoneCodeExpiry),
		verification.WithResetTokenTTL(cfg.Security.ResetTokenExpiry),
	)

	sessionService := session.NewJwtService(cfg.JWT.Secret,
		session.WithIssuer(cfg.JWT.Issuer),
		session.WithExpiry(cfg.JWT.SessionExpiry),
	)

	notifierOpts := []notification.NotificationManagerOption{
		notification.WithDefaultTemplates(),
	}
	if cfg.Notification.EmailEnabled {
		notifierOpts = append(notifierOpts, notification.WithSMTP(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			TLS:      cfg.SMTP.TLS,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	}
	if cfg.Notification.SMSEnabled {
		notifierOpts = append(notifierOpts, notification.WithTwilio(notification.TwilioConfig{
			TwilioAccountSid: cfg.Twilio.AccountSid,
			TwilioAuthToken:  cfg.Twilio.AuthToken,
			TwilioFrom:       cfg.Twilio.From,
		}))
	}
	notificationManager, err := notification.NewNotificationManagerWithOptions(cfg.Server.BaseURL, notifierOpts...)
	if err != nil {
		slog.Error("Failed to build notification manager", "err", err)
		os.Exit(-1)
	}

	accountService := account.NewService(repo, credentialService, verificationService, sessionService,
		account.WithNotificationManager(notificationManager),
		account.WithAuditSink(dispatcher),
		account.WithAuditLog(auditLog),
		account.WithPhoneRegion(cfg.Security.PhoneRegion),
	)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)
	handler := accountapi.NewHandler(accountService, tokenAuth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.PlainText(w, req, "ok")
	})
	r.Mount("/api/v1", handler.Routes())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Identity service listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "err", err)
	}
}
