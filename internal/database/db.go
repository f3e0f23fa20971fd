package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/uml-editor-backend/internal/config"
)

// Pool sizing for a small editor backend: every request touches the
// database at most a handful of times and SSE streams hold no
// connection between events.
const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Open builds the DSN from the loaded configuration, opens the MySQL
// pool and verifies connectivity before the server starts accepting
// requests. parseTime maps DATETIME columns onto time.Time and loc=UTC
// keeps stored timestamps in UTC, matching how the repositories write
// them.
func Open(cfg config.Config) (*sql.DB, error) {
	cred := cfg.DBUser
	if cfg.DBPass != "" {
		cred = cfg.DBUser + ":" + cfg.DBPass
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cred, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
