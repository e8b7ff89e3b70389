// Package migrations embeds the goose SQL migrations for the sensorhub
// schema. Files are named NNNNN_description.sql and applied in order by
// database.Migrate.
package migrations

import "embed"

// FS holds the migration files at its root.
//
//go:embed *.sql
var FS embed.FS
