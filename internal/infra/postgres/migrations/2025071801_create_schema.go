package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_schema.sql
var createSchemaSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS account_scores;
				DROP TABLE IF EXISTS battle_results;
				DROP TABLE IF EXISTS saved_games;
				DROP TABLE IF EXISTS question_progress;
				DROP TABLE IF EXISTS question_banks`)
			return err
		},
	)
}
