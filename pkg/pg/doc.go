// Package pg bootstraps PostgreSQL access on top of pgx/v5 and goose/v3.
//
// Connect builds a *pgxpool.Pool from Config and retries until the database
// answers a ping. Migrate runs goose migrations from an fs.FS against the
// same pool. Healthcheck adapts the pool to a func(context.Context) error
// probe. IsNotFoundError and UniqueViolation translate driver errors so
// repositories can map them to domain errors.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, cfg, log); err != nil {
//		return err
//	}
package pg
