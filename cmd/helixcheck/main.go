// helixcheck exercises the Helix client against real credentials: it builds
// a client and session from the environment, issues a users lookup, and
// prints the normalized result. Useful for verifying credentials, refresh
// wiring, and rate-limit headers from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gmt2001/StreamActions/helix"
	"github.com/gmt2001/StreamActions/internal/backoff"
	"github.com/gmt2001/StreamActions/internal/config"
	"github.com/gmt2001/StreamActions/internal/crypto"
	"github.com/gmt2001/StreamActions/internal/logging"
	"github.com/gmt2001/StreamActions/internal/version"
	"github.com/gmt2001/StreamActions/redistoken"
)

func main() {
	showVersion := flag.Bool("version", false, "print build information and exit")
	flag.Parse()

	if *showVersion {
		info := version.Get()
		fmt.Printf("helixcheck %s (%s, built %s, %s)\n", info.Version, info.Commit, info.BuildTime, info.GoVersion)
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	opts := helix.Options{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
		BaseURL:      cfg.HelixBaseURL,
		AuthURL:      cfg.OAuthTokenURL,
		UserAgent:    version.UserAgent(),
		Logger:       logging.Logger,
	}

	var store *redistoken.Store
	if cfg.RedisURL != "" {
		redisOpts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to parse redis URL", "error", err)
			os.Exit(1)
		}

		var storeOpts []redistoken.Option
		if cfg.TokenEncryptionKey != "" {
			cipher, err := crypto.NewAESGCM(cfg.TokenEncryptionKey)
			if err != nil {
				slog.Error("Invalid token encryption key", "error", err)
				os.Exit(1)
			}
			storeOpts = append(storeOpts, redistoken.WithCipher(cipher))
		}

		store = redistoken.NewStore(goredis.NewClient(redisOpts), clockwork.NewRealClock(), logging.Logger, storeOpts...)
		opts.OnTokenRefresh = store.RefreshCallback()
	}

	client, err := helix.New(opts)
	if err != nil {
		slog.Error("Failed to create helix client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sess, err := buildSession(ctx, client, store, cfg)
	if err != nil {
		slog.Error("Failed to build session", "error", err)
		os.Exit(1)
	}

	users, resp, err := client.GetUsers(ctx, sess, flag.Args(), nil)
	if err != nil {
		slog.Error("Request failed", "error", err)
		os.Exit(1)
	}
	if resp.Status != 200 {
		slog.Error("API returned an error", "status", resp.Status, "message", resp.ErrorMessage())
		os.Exit(1)
	}

	remaining, bucket, resetAt := sess.Limiter().Snapshot()
	slog.Info("Quota after call", "remaining", remaining, "bucket", bucket, "reset_at", resetAt)

	for _, u := range users {
		fmt.Printf("%s\t%s\t%s\n", u.ID, u.Login, u.DisplayName)
	}
}

// buildSession prefers a stored token for the actor, falls back to env
// credentials, and finally bootstraps an app access token.
func buildSession(ctx context.Context, client *helix.Client, store *redistoken.Store, cfg *config.Config) (*helix.Session, error) {
	if store != nil && cfg.ActorID != "" {
		if tok, err := store.Load(ctx, cfg.ActorID); err == nil {
			slog.Debug("Using stored token", "actor", cfg.ActorID)
			return client.NewSession(cfg.ActorID, tok, nil), nil
		}
	}

	if cfg.AccessToken != "" {
		tok := helix.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Hour),
		}
		return client.NewSession(cfg.ActorID, tok, []string{}), nil
	}

	// Bootstrap grants fail transiently when the auth service hiccups; a
	// revoked credential is permanent and not worth retrying.
	policy := backoff.Policy{
		Attempts: 3,
		Initial:  500 * time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			slog.Warn("Retrying app token bootstrap", "attempt", attempt, "error", err)
		},
	}
	retryable := func(err error) bool {
		var rerr *helix.RefreshError
		if errors.As(err, &rerr) {
			return !rerr.Revoked
		}
		return true
	}

	tok, err := backoff.Do(ctx, policy, retryable, func() (helix.Token, error) {
		return client.AppAccessToken(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("app access token bootstrap failed: %w", err)
	}
	return client.NewSession("app", tok, []string{}), nil
}
