package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createEngineTablesSQL = `
CREATE TABLE IF NOT EXISTS questions (
	id BIGINT PRIMARY KEY,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS match_archive (
	id BIGINT PRIMARY KEY,
	status TEXT NOT NULL,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS player_stats (
	address TEXT PRIMARY KEY,
	data JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS match_archive_status_idx ON match_archive (status);
`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createEngineTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS player_stats; DROP TABLE IF EXISTS match_archive; DROP TABLE IF EXISTS questions`)
			return err
		},
	)
}
