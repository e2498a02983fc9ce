package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"faithfulcity/internal/config"
	"faithfulcity/internal/middleware"

	// pgx registers the "pgx" database/sql driver used for maintenance connections.
	_ "github.com/jackc/pgx/v5/stdlib"
)

var dbNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// MaintenanceDSN returns a URL DSN pointing at dbName on the configured server.
func MaintenanceDSN(cfg *config.Config, dbName string) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:     cfg.DBHost + ":" + cfg.DBPort,
		Path:     "/" + dbName,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// EnsureDatabase creates cfg.DBName on the Postgres server when missing. It is
// a no-op for sqlite.
func EnsureDatabase(ctx context.Context, cfg *config.Config) (created bool, err error) {
	if cfg.DBDriver == "sqlite" {
		return false, nil
	}
	if !dbNamePattern.MatchString(cfg.DBName) {
		return false, fmt.Errorf("refusing to create database with unsafe name %q", cfg.DBName)
	}

	sqlDB, err := sql.Open("pgx", MaintenanceDSN(cfg, "postgres"))
	if err != nil {
		return false, fmt.Errorf("open maintenance db: %w", err)
	}
	defer sqlDB.Close()

	var exists bool
	if err := sqlDB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.DBName,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := sqlDB.ExecContext(ctx, `CREATE DATABASE "`+cfg.DBName+`"`); err != nil {
		return false, fmt.Errorf("create database: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "database created", slog.String("name", cfg.DBName))
	return true, nil
}
