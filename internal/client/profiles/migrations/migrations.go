// Package migrations embeds the PostgreSQL profile store schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
