package migration

import "embed"

const migrationsDir = "migrations"

// Schema migrations ship inside the binary; only *.up.sql files are applied,
// in filename order.
//
//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS
