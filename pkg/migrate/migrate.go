package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

// DefaultDir is where `create` writes new files on disk. Runs read the copy
// embedded at build time.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

//go:embed sqlite/schema.sql
var sqliteSchema string

// Files exposes the embedded Postgres migrations.
func Files() fs.FS {
	return migrationFiles
}

var (
	errNoDB      = errors.New("db is required")
	errNoVersion = errors.New("target version is required")
)

func prepare(db *sql.DB) error {
	if db == nil {
		return errNoDB
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run passes command through to goose against the embedded migrations.
// goose prints its own status output.
func Run(ctx context.Context, db *sql.DB, command string, args ...string) error {
	if err := prepare(db); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, embeddedDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at version,
// a YYYYMMDDHHMMSS migration id.
func MigrateToVersion(ctx context.Context, db *sql.DB, version string) error {
	if version == "" {
		return errNoVersion
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}
	if err := prepare(db); err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	step, verb := goose.UpToContext, "up-to"
	switch {
	case current == target:
		return nil
	case current > target:
		step, verb = goose.DownToContext, "down-to"
	}
	if err := step(ctx, db, embeddedDir, target); err != nil {
		return fmt.Errorf("goose %s %d: %w", verb, target, err)
	}
	return nil
}

// ApplySQLiteSchema creates the local sqlite tables. The Postgres migrations
// rely on enums, triggers and pg functions sqlite does not have.
func ApplySQLiteSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}
