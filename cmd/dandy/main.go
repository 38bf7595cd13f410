package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/dandy/internal/config"
	"github.com/dukerupert/dandy/internal/database"
	"github.com/dukerupert/dandy/internal/email"
	"github.com/dukerupert/dandy/internal/logging"
	"github.com/dukerupert/dandy/internal/oauth"
	"github.com/dukerupert/dandy/internal/server"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.Setup(cfg.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.DatabaseConfigured() {
		var err error
		db, err = database.Open(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		slog.Warn("DATABASE_URL not set, datastore operations will fail")
	}

	mailer := email.NewSender(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, "Dandy")

	var (
		authn         *oauth.Authenticator
		oauthSessions *oauth.Sessions
	)
	if cfg.OAuthEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		google, err := oauth.NewGoogle(ctx, oauth.GoogleConfig{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/auth/callback/google",
		})
		cancel()
		if err != nil {
			slog.Error("failed to configure google sign-in", "error", err)
			os.Exit(1)
		}
		authn = oauth.NewAuthenticator()
		if err := authn.Use("google", google); err != nil {
			slog.Error("register provider", "error", err)
			os.Exit(1)
		}
		oauthSessions, err = oauth.NewSessions(cfg.OAuth.Secret, cfg.Production())
		if err != nil {
			slog.Error("oauth sessions", "error", err)
			os.Exit(1)
		}
	}

	srv := server.New(cfg, db, mailer, authn, oauthSessions, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	if cfg.CleanupInterval > 0 && db != nil {
		go func() {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := srv.Cleanup(cleanupCtx); err != nil {
						slog.Error("cleanup expired rows", "error", err)
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		slog.Info("dandy starting", "addr", cfg.HTTP.ListenAddr, "base_url", cfg.BaseURL, "env", cfg.AppEnv, "oauth", cfg.OAuthEnabled())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
