package pg

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies goose SQL migrations from cfg.MigrationsPath. goose only
// speaks database/sql, so the pgx pool is bridged through stdlib; the
// wrapper shares the pool's connections.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	if cfg.MigrationsPath == "" {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationPathNotProvided)
	}
	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		if os.IsNotExist(err) {
			return errors.Join(ErrMigrationsDirNotFound, err)
		}
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration db handle", slog.Any("error", err))
		}
	}()

	goose.SetLogger(&gooseSlog{ctx: ctx, log: log})
	goose.SetTableName(cfg.MigrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, cfg.MigrationsPath); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// gooseSlog routes goose's Printf-style output through slog so migration
// logs land in the application's structured stream.
type gooseSlog struct {
	ctx context.Context
	log *slog.Logger
}

func (g *gooseSlog) Printf(format string, v ...any) {
	g.log.InfoContext(g.ctx, "goose: "+trimNewline(format), slog.Any("args", v))
}

func (g *gooseSlog) Fatalf(format string, v ...any) {
	g.log.ErrorContext(g.ctx, "goose: "+trimNewline(format), slog.Any("args", v))
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
