// Package httpserver runs the service's HTTP listener with timeouts from
// Config, graceful shutdown on context cancellation and shutdown hooks for
// releasing resources. It also provides liveness and readiness check
// handlers.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithOnShutdown(func(context.Context) error { pool.Close(); return nil }),
//	)
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Run(ctx, router); err != nil { ... }
package httpserver
