package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kegdev/hearth/internal/auth"
	"github.com/kegdev/hearth/internal/config"
	"github.com/kegdev/hearth/internal/httpapi"
	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/storage"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Log.Logging())

	store, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("open store")
	}
	defer store.Close()
	if err := store.Init(context.Background()); err != nil {
		logging.Fatal().Err(err).Msg("init store")
	}

	mux := http.NewServeMux()
	httpapi.NewServer(store, cfg.AdminEmail).RegisterRoutes(mux)

	handler, err := withAuth(cfg, mux)
	if err != nil {
		logging.Fatal().Err(err).Msg("configure auth")
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logging.Info().Str("addr", cfg.Addr()).Str("db", cfg.DBPath).Bool("oidc", cfg.OIDCEnabled()).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal().Err(err).Msg("server error")
	}
}

// withAuth puts OIDC in front of the API, or a fixed development user when
// no issuer is configured.
func withAuth(cfg config.ServerConfig, mux *http.ServeMux) (http.Handler, error) {
	if !cfg.OIDCEnabled() {
		logging.Warn().Str("user", cfg.DevUser).Msg("OIDC not configured, serving as development user")
		return auth.DevUserMiddleware(cfg.DevUser, cfg.DevEmail)(mux), nil
	}

	manager, err := auth.NewManager(auth.Config{
		IssuerURL:    cfg.OIDCIssuerURL,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		SessionKey:   cfg.SessionKey,
		SessionTTL:   cfg.SessionTTL,
		CookieSecure: cfg.CookieSecure,
		FallbackURL:  "/auth/login",
	})
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /auth/callback", manager.CallbackHandler())
	mux.Handle("GET /auth/login", manager.LoginHandler())
	mux.Handle("POST /auth/logout", manager.LogoutHandler())

	skipper := func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/auth/callback")
	}
	return manager.OIDCMiddleware(skipper)(manager.WithUser(mux)), nil
}
