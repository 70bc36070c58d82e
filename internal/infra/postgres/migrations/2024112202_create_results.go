package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_create_results.sql
var createResultsSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execStatements(ctx, db, createResultsSQL)
		},
		func(ctx context.Context, db *bun.DB) error {
			return execStatements(ctx, db, `DROP TABLE IF EXISTS answer_results; DROP TABLE IF EXISTS session_results`)
		},
	)
}
