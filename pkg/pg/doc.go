// Package pg wires PostgreSQL into the service: a pgx connection pool with
// startup retries, goose migrations run from an fs.FS, a readiness check and
// error classification helpers.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil { ... }
//
//	pool, err := pg.Connect(ctx, cfg, log)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, "migrations", cfg.MigrationsTable, log); err != nil { ... }
//
// Use IsDuplicateKeyError and IsNotFoundError to turn driver errors into
// domain errors.
package pg
