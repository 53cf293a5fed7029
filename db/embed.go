// Package db provides the embedded database migrations.
package db

import "embed"

// Migrations holds the versioned up/down SQL files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that holds the SQL files.
const MigrationsDir = "migrations"
