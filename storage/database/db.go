package database

import (
	"context"
	"embed"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
)

// drivers maps the configured engine to its database/sql driver name.
var drivers = map[string]string{
	"postgres": "postgres",
	"sqlite":   "sqlite",
}

// Open opens the configured database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	driver, ok := drivers[conf.Database.Engine]
	if !ok {
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	db, err := sqlx.Open(driver, conf.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == "sqlite" {
		// sqlite does not support concurrent writers
		db.SetMaxOpenConns(1)
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// MigrationsDir is the directory of MigrationsFS holding the goose SQL migrations.
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var MigrationsFS embed.FS

// goose dialect of each database/sql driver
var gooseDialects = map[string]string{
	"postgres": "postgres",
	"sqlite":   "sqlite3",
}

// goose keeps its base FS & dialect in package state
var gooseMu sync.Mutex

// RunMigrations runs a goose command (up, down, status, redo, version...) against the embedded
// migrations.
func RunMigrations(ctx context.Context, command string, db *sqlx.DB, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dialect, ok := gooseDialects[db.DriverName()]
	if !ok {
		return errors.Errorf("no migration dialect for driver %q", db.DriverName())
	}
	goose.SetBaseFS(MigrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	return goose.RunContext(ctx, command, db.DB, MigrationsDir, args...)
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if err := RunMigrations(ctx, "up", db); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
