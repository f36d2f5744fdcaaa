package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/smsgate/pkg/config"
	"github.com/dmitrymomot/smsgate/pkg/httpserver"
	"github.com/dmitrymomot/smsgate/pkg/mongo"
	"github.com/dmitrymomot/smsgate/pkg/paramstore"
	"github.com/dmitrymomot/smsgate/pkg/pg"
	"github.com/dmitrymomot/smsgate/pkg/ratelimiter"
	"github.com/dmitrymomot/smsgate/pkg/redis"
	"github.com/dmitrymomot/smsgate/pkg/webhook"
	"github.com/dmitrymomot/smsgate/svc/messaging"
	"github.com/dmitrymomot/smsgate/svc/messaging/mongostore"
	"github.com/dmitrymomot/smsgate/svc/messaging/pgstore"
)

type messageBackend struct {
	store  messaging.Store
	checks []httpserver.Check
	close  func(context.Context) error
}

type ingressBackend struct {
	store  ratelimiter.Store
	checks []httpserver.Check
	close  func(context.Context) error
}

func noopClose(context.Context) error { return nil }

// openStore connects the message store selected by STORE_DRIVER. Backend
// configs are loaded only for the selected driver.
func openStore(ctx context.Context, driver string, log *slog.Logger) (messageBackend, error) {
	switch driver {
	case "", "memory":
		log.WarnContext(ctx, "using in-memory message store, data is lost on restart")
		return messageBackend{store: messaging.NewMemoryStore(), close: noopClose}, nil

	case "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return messageBackend{}, err
		}
		pool, err := pg.Connect(ctx, cfg, log)
		if err != nil {
			return messageBackend{}, err
		}
		if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg.MigrationsTable, log); err != nil {
			pool.Close()
			return messageBackend{}, err
		}
		return messageBackend{
			store:  pgstore.New(pool),
			checks: []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}},
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case "mongo":
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return messageBackend{}, err
		}
		client, err := mongo.Connect(ctx, cfg, log)
		if err != nil {
			return messageBackend{}, err
		}
		store := mongostore.New(client.Database(cfg.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return messageBackend{}, err
		}
		return messageBackend{
			store:  store,
			checks: []httpserver.Check{{Name: "mongo", Fn: mongo.Healthcheck(client)}},
			close:  client.Disconnect,
		}, nil

	default:
		return messageBackend{}, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

// openIngressStore picks where per-IP webhook buckets live. Redis shares the
// limit across replicas.
func openIngressStore(ctx context.Context, driver string, log *slog.Logger) (ingressBackend, error) {
	switch driver {
	case "", "memory":
		store := ratelimiter.NewMemoryStore()
		return ingressBackend{
			store: store,
			close: func(context.Context) error {
				store.Close()
				return nil
			},
		}, nil

	case "redis":
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return ingressBackend{}, err
		}
		client, err := redis.Connect(ctx, cfg, log)
		if err != nil {
			return ingressBackend{}, err
		}
		return ingressBackend{
			store:  ratelimiter.NewRedisStore(client, ratelimiter.WithKeyPrefix("smsgate:ingress:")),
			checks: []httpserver.Check{{Name: "redis", Fn: redis.Healthcheck(client)}},
			close:  func(context.Context) error { return client.Close() },
		}, nil

	default:
		return ingressBackend{}, fmt.Errorf("unknown INGRESS_RATE_STORE %q", driver)
	}
}

// resolveWebhookSecret prefers WEBHOOK_AUTH_TOKEN and falls back to the SSM
// parameter named by WEBHOOK_AUTH_TOKEN_PARAM. No SSM client is created
// unless it is needed.
func resolveWebhookSecret(ctx context.Context, cfg webhook.Config) (string, error) {
	if cfg.AuthToken != "" || cfg.AuthTokenParam == "" {
		return cfg.AuthToken, nil
	}

	params, err := paramstore.NewFromEnvironment(ctx)
	if err != nil {
		return "", err
	}
	secret, err := paramstore.Resolve(ctx, params, cfg.AuthToken, cfg.AuthTokenParam)
	if err != nil {
		return "", fmt.Errorf("resolve webhook auth token: %w", err)
	}
	return secret, nil
}
