package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/RezaEskandarii/jobstatus/internal/constants"
	"github.com/RezaEskandarii/jobstatus/internal/lock"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const schema = "jobstatus_schema"

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens a PostgreSQL pool and checks it is reachable.
func Open(ctx context.Context, postgresURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Init creates the schema and applies the embedded migration scripts in name order.
// The migration lock keeps concurrent instances from migrating at the same time;
// every script is idempotent so re-running Init is safe.
func Init(ctx context.Context, db *sql.DB, distributedLock lock.DistributedLockManager) error {
	migrationLock := constants.MigrationLock

	if err := distributedLock.Acquire(ctx, migrationLock); err != nil {
		return err
	}
	defer func() {
		if err := distributedLock.Release(ctx, migrationLock); err != nil {
			log.Error().Err(err).Msg("release migration lock")
		}
	}()

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	scripts, err := readSQLScripts()
	if err != nil {
		return err
	}
	for _, script := range scripts {
		log.Debug().Str("migration", script.name).Msg("applying migration")
		if _, err := db.ExecContext(ctx, script.body); err != nil {
			return fmt.Errorf("migration %s: %w", script.name, err)
		}
	}

	log.Info().Int("scripts", len(scripts)).Msg("database migrated")
	return nil
}

type sqlScript struct {
	name string
	body string
}

func readSQLScripts() ([]sqlScript, error) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return nil, err
	}

	var scripts []sqlScript
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		content, err := fs.ReadFile(migrations, "migrations/"+entry.Name())
		if err != nil {
			return nil, err
		}

		scripts = append(scripts, sqlScript{name: entry.Name(), body: string(content)})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].name < scripts[j].name })
	return scripts, nil
}
