// Package migrations embeds the goose SQL migrations for the reports schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
