// Package pg bootstraps PostgreSQL access on top of pgx/v5.
//
// Connect opens a pool with retries, Migrate applies goose migrations from an
// fs.FS (usually an embed.FS owned by the package that defines the schema),
// and Healthcheck adapts the pool into a readiness probe.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, "sql", log); err != nil {
//	    return err
//	}
//
// The Is*Error helpers classify errors returned by pgx.
package pg
