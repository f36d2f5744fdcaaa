// Command smsgate runs the SMS gateway: provider webhooks, the outbound
// messages API and health checks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/smsgate/modules/sms"
	"github.com/dmitrymomot/smsgate/pkg/carrier"
	"github.com/dmitrymomot/smsgate/pkg/clientip"
	"github.com/dmitrymomot/smsgate/pkg/config"
	"github.com/dmitrymomot/smsgate/pkg/httpserver"
	"github.com/dmitrymomot/smsgate/pkg/logger"
	"github.com/dmitrymomot/smsgate/pkg/ratelimiter"
	"github.com/dmitrymomot/smsgate/pkg/requestid"
	"github.com/dmitrymomot/smsgate/pkg/retry"
	"github.com/dmitrymomot/smsgate/pkg/webhook"
	"github.com/dmitrymomot/smsgate/svc/messaging"
)

type appConfig struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	Name         string `env:"APP_NAME" envDefault:"smsgate"`
	LogLevel     string `env:"LOG_LEVEL"`
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"memory"`       // memory, postgres or mongo
	IngressStore string `env:"INGRESS_RATE_STORE" envDefault:"memory"` // memory or redis
}

var errSkipSignatureInProduction = errors.New("WEBHOOK_SKIP_SIGNATURE must not be set in production")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("smsgate stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	if err := config.Load(&app); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if app.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(app.LogLevel)); err != nil {
			return fmt.Errorf("parse LOG_LEVEL: %w", err)
		}
		logOpts = append(logOpts, logger.WithLevel(level))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	backend, err := openStore(ctx, app.StoreDriver, log)
	if err != nil {
		return err
	}
	ingress, err := openIngressStore(ctx, app.IngressStore, log)
	if err != nil {
		_ = backend.close(context.Background())
		return err
	}
	shutdown := []func(context.Context) error{backend.close, ingress.close}
	checks := append(backend.checks, ingress.checks...)

	router, err := buildRouter(ctx, app, log, backend.store, ingress.store, checks)
	if err != nil {
		for _, fn := range shutdown {
			_ = fn(context.Background())
		}
		return err
	}

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	opts := []httpserver.Option{httpserver.WithLogger(log)}
	for _, fn := range shutdown {
		opts = append(opts, httpserver.WithOnShutdown(fn))
	}

	log.InfoContext(ctx, "starting smsgate",
		slog.String("store", app.StoreDriver),
		slog.String("ingress_store", app.IngressStore),
		slog.String("addr", httpCfg.Addr),
	)
	return httpserver.NewFromConfig(httpCfg, opts...).Run(ctx, router)
}

func buildRouter(
	ctx context.Context,
	app appConfig,
	log *slog.Logger,
	store messaging.Store,
	ingressStore ratelimiter.Store,
	checks []httpserver.Check,
) (http.Handler, error) {
	var (
		carrierCfg  carrier.Config
		circuitCfg  carrier.CircuitConfig
		retryCfg    retry.Config
		bucketCfg   ratelimiter.TokenBucketConfig
		pipelineCfg messaging.PipelineConfig
		ingressCfg  ratelimiter.Config
		webhookCfg  webhook.Config
		ipCfg       clientip.Config
	)
	if err := errors.Join(
		config.Load(&carrierCfg),
		config.Load(&circuitCfg),
		config.Load(&retryCfg),
		config.Load(&bucketCfg),
		config.Load(&pipelineCfg),
		config.Load(&ingressCfg),
		config.Load(&webhookCfg),
		config.Load(&ipCfg),
	); err != nil {
		return nil, err
	}

	if webhookCfg.SkipValidation && (app.Env == logger.EnvProduction || app.Env == "prod") {
		return nil, errSkipSignatureInProduction
	}
	secret, err := resolveWebhookSecret(ctx, webhookCfg)
	if err != nil {
		return nil, err
	}
	if secret == "" && !webhookCfg.SkipValidation {
		log.WarnContext(ctx, "no webhook auth token configured, provider callbacks will be answered with 500")
	}

	client, err := carrier.New(carrierCfg)
	if err != nil {
		return nil, err
	}
	sendBucket, err := ratelimiter.NewTokenBucket(bucketCfg)
	if err != nil {
		return nil, err
	}
	ingressBucket, err := ratelimiter.NewBucket(ingressStore, ingressCfg)
	if err != nil {
		return nil, err
	}

	policy := retry.New(retryCfg, retry.WithLogger(log))
	pipeline := messaging.NewPipeline(sendBucket, policy,
		messaging.WithPerAttemptGating(pipelineCfg.GateEveryAttempt),
		messaging.WithCircuitBreaker(carrier.NewCircuitBreaker(circuitCfg, nil)),
		messaging.WithPipelineLogger(log),
	)
	service := messaging.NewService(store, pipeline, client, messaging.WithServiceLogger(log))
	processor := messaging.NewProcessor(store, messaging.WithProcessorLogger(log))

	validator := webhook.NewValidatorFromConfig(webhookCfg, secret, webhook.WithLogger(log))
	resolver := clientip.NewFromConfig(ipCfg)

	return sms.Router(sms.RouterOptions{
		Webhooks: sms.NewWebhookService(processor, validator,
			sms.WithIngressLimiter(ingressBucket, resolver.Key),
			sms.WithWebhookLogger(log),
		),
		Messages:        sms.NewMessagesService(service, sms.WithMessagesLogger(log)),
		ClientIP:        resolver,
		ReadinessChecks: checks,
		Logger:          log,
	}), nil
}
