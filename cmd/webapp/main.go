package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bookshelf/internal/authclient"
	"bookshelf/internal/bookclient"
	"bookshelf/internal/config"
	"bookshelf/internal/ratelimit"
	"bookshelf/internal/session"
	"bookshelf/internal/tokenstore"
	"bookshelf/internal/usertoken"
	"bookshelf/internal/util"
	"bookshelf/internal/web"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	tokens := tokenstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, tokenTTL)

	var verifier session.TokenVerifier
	if cfg.AuthJWKSURL != "" {
		leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
		if err != nil {
			log.Fatalf("failed to parse JWT leeway: %v", err)
		}
		v, err := usertoken.NewVerifier(usertoken.Config{
			JWKSURL:  cfg.AuthJWKSURL,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   leeway,
		})
		if err != nil {
			log.Fatalf("failed to init token verifier: %v", err)
		}
		verifier = v
	}

	sessions := session.NewController(authclient.NewClient(cfg.APIBaseURL), tokens, verifier)

	var loginLimiter, registerLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "bookshelf:ratelimit:login",
			cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
	}
	if cfg.RegisterRateLimitPerMinute > 0 {
		registerLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "bookshelf:ratelimit:register",
			cfg.RegisterRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init register rate limiter: %v", err)
		}
	}

	webServer, err := web.New(web.Config{
		Sessions:            sessions,
		Tokens:              tokens,
		Books:               bookclient.NewClient(cfg.APIBaseURL),
		SessionCookieName:   cfg.SessionCookieName,
		SessionCookieSecure: cfg.SessionCookieSecure,
		LoginLimiter:        loginLimiter,
		RegisterLimiter:     registerLimiter,
	})
	if err != nil {
		log.Fatalf("failed to init web server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      webServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
