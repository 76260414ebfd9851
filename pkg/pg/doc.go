// Package pg provides PostgreSQL connection helpers for billingkit
// services: a retrying pgxpool connector, a healthcheck closure for
// readiness probes, goose migration running bridged onto the pgx pool, and
// error classification helpers for translating SQLSTATE codes into
// application conditions.
//
// Configuration comes from environment variables via pkg/config:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    // terminate: the service cannot run without its database
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    // terminate: schema is not at the expected version
//	}
package pg
