package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"mserapports/internal/db/migrations"
	"mserapports/pkg/types"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Open connects to PostgreSQL using DATABASE_URL when set, falling back to
// the discrete DB_* values. Failure to reach the database is fatal to the
// caller; no retry is attempted.
func Open(ctx context.Context, config *types.Config) (*sql.DB, error) {

	database, err := sql.Open("pgx", DSN(config))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(10)
	database.SetConnMaxIdleTime(15 * time.Minute)
	database.SetConnMaxLifetime(45 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return database, nil
}

// DSN resolves the connection string: DATABASE_URL first, else the discrete
// host/port/name/user/password values.
func DSN(config *types.Config) string {
	if config.DatabaseURL != "" {
		return config.DatabaseURL
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config.DBUser, config.DBPassword),
		Host:   fmt.Sprintf("%s:%d", config.DBHost, config.DBPort),
		Path:   "/" + config.DBName,
	}

	return u.String()
}

// Migrate idempotently ensures the reports schema exists. It only ever
// creates; nothing is dropped or altered on the up path.
func Migrate(ctx context.Context, database *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, database, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
